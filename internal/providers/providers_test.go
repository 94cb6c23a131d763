package providers_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrisage/agrisage/backend/internal/providers"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestWeatherFetchDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("past_days") != "7" || q.Get("forecast_days") != "3" {
			t.Errorf("unexpected day window: %s", r.URL.RawQuery)
		}
		if q.Get("latitude") != "9.03" {
			t.Errorf("latitude = %q", q.Get("latitude"))
		}
		w.Write([]byte(`{"daily": {
			"time": ["2026-03-01", "2026-03-02"],
			"weather_code": [61, null],
			"temperature_2m_max": [24.1, 25.0],
			"temperature_2m_min": [11.2, null],
			"sunshine_duration": [31000, 29000],
			"rain_sum": [8.5, 0],
			"wind_speed_10m_max": [12.0, 14.5],
			"et0_fao_evapotranspiration": [3.1, 3.4]
		}}`))
	}))
	defer srv.Close()

	c := providers.NewWeatherClient(srv.URL)
	series, err := c.FetchDaily(context.Background(), 9.03, 38.74, 7, 3)
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(series.Dates) != 2 || series.Dates[0] != "2026-03-01" {
		t.Fatalf("dates = %v", series.Dates)
	}
	if series.WeatherCode[0] == nil || *series.WeatherCode[0] != 61 {
		t.Errorf("weather code[0] = %v", series.WeatherCode[0])
	}
	if series.WeatherCode[1] != nil {
		t.Errorf("weather code[1] should stay nil for null samples")
	}
	if series.TemperatureMin[1] != nil {
		t.Errorf("temperature min[1] should stay nil")
	}
}

func TestWeatherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such route", http.StatusNotFound)
	}))
	defer srv.Close()

	c := providers.NewWeatherClient(srv.URL)
	_, err := c.FetchDaily(context.Background(), 9.03, 38.74, 0, 7)
	var ae *providers.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *AdapterError", err)
	}
	if ae.Kind != providers.ErrKindHTTPStatus || ae.Status != http.StatusNotFound {
		t.Errorf("kind = %s status = %d", ae.Kind, ae.Status)
	}
	if ae.Provider != providers.ProviderWeather {
		t.Errorf("provider = %s", ae.Provider)
	}
}

func TestGeocodeReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [{"properties": {
			"name": "Bole", "city": "Addis Ababa", "country": "Ethiopia"
		}}]}`))
	}))
	defer srv.Close()

	c := providers.NewGeocodeClient(srv.URL)
	place, err := c.Reverse(context.Background(), 9.0, 38.7)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if place.City != "Addis Ababa" || place.Country != "Ethiopia" {
		t.Fatalf("place = %+v", place)
	}
}

func TestGeocodeReverseNoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	c := providers.NewGeocodeClient(srv.URL)
	_, err := c.Reverse(context.Background(), 0, 0)
	var ae *providers.AdapterError
	if !errors.As(err, &ae) || ae.Kind != providers.ErrKindParse {
		t.Fatalf("error = %v, want parse AdapterError", err)
	}
}

func TestLLMComplete(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("key") != "k1" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		w.Write([]byte(`{"candidates": [{"content": {"parts": [
			{"text": "Plant early "}, {"text": "and mulch."}
		]}}]}`))
	}))
	defer srv.Close()

	c, err := providers.NewLLMClient("k1", "gemini-2.0-flash-001", srv.URL)
	if err != nil {
		t.Fatalf("NewLLMClient: %v", err)
	}
	temp := 0.2
	text, err := c.Complete(context.Background(), "when to plant?", providers.LLMOptions{
		Temperature:     &temp,
		MaxOutputTokens: 100,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Plant early and mulch." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/models/gemini-2.0-flash-001:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestLLMVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, _ := providers.NewLLMClient("k1", "m", srv.URL)
	_, err := c.Complete(context.Background(), "hi", providers.LLMOptions{})
	var ae *providers.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *AdapterError", err)
	}
}

func TestLLMMissingKey(t *testing.T) {
	_, err := providers.NewLLMClient("", "m", "http://example.invalid")
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("key") != "tk" {
			t.Errorf("key = %q", r.PostForm.Get("key"))
		}
		switch r.URL.Path {
		case "/detect":
			w.Write([]byte(`{"data": {"detections": [[{"language": "am"}]]}}`))
		default:
			if r.PostForm.Get("target") != "en" {
				t.Errorf("target = %q", r.PostForm.Get("target"))
			}
			w.Write([]byte(`{"data": {"translations": [{"translatedText": "hello"}]}}`))
		}
	}))
	defer srv.Close()

	c, err := providers.NewTranslateClient("tk", srv.URL)
	if err != nil {
		t.Fatalf("NewTranslateClient: %v", err)
	}
	lang, err := c.DetectLanguage(context.Background(), "ሰላም")
	if err != nil || lang != "am" {
		t.Fatalf("DetectLanguage = %q, %v", lang, err)
	}
	text, err := c.TranslateToEnglish(context.Background(), "ሰላም")
	if err != nil || text != "hello" {
		t.Fatalf("TranslateToEnglish = %q, %v", text, err)
	}
}

func TestDetectClientFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer dk" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data": {"detections": [{"language": "sw"}]}}`))
	}))
	defer srv.Close()

	c, err := providers.NewDetectClient("dk", providers.WithDetectEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewDetectClient: %v", err)
	}
	lang, err := c.DetectLanguage(context.Background(), "habari")
	if err != nil || lang != "sw" {
		t.Fatalf("DetectLanguage = %q, %v", lang, err)
	}

	// Translation through the fallback passes text through unchanged.
	text, err := c.TranslateToEnglish(context.Background(), "habari")
	if err != nil || text != "habari" {
		t.Fatalf("TranslateToEnglish = %q, %v", text, err)
	}
}

func TestSpeechTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{
			"alternatives": [{"transcript": "my maize has spots", "confidence": 0.87}],
			"languageCode": "en-US"
		}]}`))
	}))
	defer srv.Close()

	c, err := providers.NewSpeechClient("sk", srv.URL)
	if err != nil {
		t.Fatalf("NewSpeechClient: %v", err)
	}
	tr, err := c.Transcribe(context.Background(), []byte("audio"), "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "my maize has spots" || tr.Confidence != 0.87 {
		t.Fatalf("transcript = %+v", tr)
	}
	if tr.DetectedLanguage != "en" {
		t.Errorf("detected language = %q, want locale trimmed to en", tr.DetectedLanguage)
	}
}

func TestSpeechTranscribeLanguageHintWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{
			"alternatives": [{"transcript": "ok", "confidence": 0.9}],
			"languageCode": "en-US"
		}]}`))
	}))
	defer srv.Close()

	c, _ := providers.NewSpeechClient("sk", srv.URL)
	tr, err := c.Transcribe(context.Background(), []byte("audio"), "am")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.DetectedLanguage != "am" {
		t.Errorf("detected language = %q, want the caller's hint", tr.DetectedLanguage)
	}
}

func TestTTSSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audioContent": "bW9ybmluZw=="}`))
	}))
	defer srv.Close()

	c, err := providers.NewTTSClient("vk", srv.URL)
	if err != nil {
		t.Fatalf("NewTTSClient: %v", err)
	}
	syn, err := c.Synthesize(context.Background(), "good morning", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if syn.AudioBase64 != "bW9ybmluZw==" || syn.AudioFormat != "mp3" {
		t.Fatalf("synthesis = %+v", syn)
	}
}

func TestSoilTokenIsCachedAcrossLookups(t *testing.T) {
	logins := 0
	loginSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		w.Write([]byte(`{"access_token": "tok123", "expires_in": 3600}`))
	}))
	defer loginSrv.Close()

	propSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok123" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"property": {"ph": [{"value": {"type": "float", "unit": "-", "value": 6.5},
			"depth": {"value": "0-20", "unit": "cm"}}]}}`))
	}))
	defer propSrv.Close()

	ts, err := providers.NewPasswordGrantTokenSource(loginSrv.URL, "farmer", "secret")
	if err != nil {
		t.Fatalf("NewPasswordGrantTokenSource: %v", err)
	}
	c := providers.NewSoilClient("", propSrv.URL, ts)

	for i := 0; i < 2; i++ {
		raw, err := c.FetchProperties(context.Background(), 9.0, 38.7, "0-20")
		if err != nil {
			t.Fatalf("FetchProperties: %v", err)
		}
		if len(raw.Property["ph"]) != 1 {
			t.Fatalf("property = %+v", raw.Property)
		}
	}
	if logins != 1 {
		t.Errorf("logins = %d, want the token reused", logins)
	}
}

func TestSoilFetchType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("top_k") != "3" {
			t.Errorf("top_k = %q", r.URL.Query().Get("top_k"))
		}
		w.Write([]byte(`{"properties": {"most_probable_soil_type": "Vertisols",
			"probabilities": [{"soil_type": "Vertisols", "probability": 0.62}]}}`))
	}))
	defer srv.Close()

	ts, _ := providers.NewPasswordGrantTokenSource("http://example.invalid", "u", "p")
	c := providers.NewSoilClient(srv.URL, "", ts)
	raw, err := c.FetchType(context.Background(), 9.0, 38.7, 3)
	if err != nil {
		t.Fatalf("FetchType: %v", err)
	}
	if raw.Properties.MostProbableSoilType != "Vertisols" {
		t.Fatalf("soil type = %q", raw.Properties.MostProbableSoilType)
	}
}

func TestCropVisionIdentify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "cv" {
			t.Errorf("api key header = %q", r.Header.Get("Api-Key"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("similar_images") != "true" {
			t.Errorf("similar_images = %q", r.FormValue("similar_images"))
		}
		w.Write([]byte(`{"result": {
			"is_plant": {"binary": true},
			"disease": {"suggestions": [{"name": "late blight", "probability": 0.81}]},
			"crop": {"suggestions": [{"name": "potato", "probability": 0.9}]}
		}}`))
	}))
	defer srv.Close()

	c, err := providers.NewCropVisionClient("cv", srv.URL)
	if err != nil {
		t.Fatalf("NewCropVisionClient: %v", err)
	}
	raw, err := c.Identify(context.Background(), jpegBytes(t, 300, 300), 9.0, 38.7)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !raw.Result.IsPlant.Binary {
		t.Error("is_plant should be true")
	}
	if raw.Result.Disease.Suggestions[0].Name != "late blight" {
		t.Errorf("disease = %+v", raw.Result.Disease.Suggestions)
	}
}

func TestLeafScanAnalyzeNormalizesImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			t.Fatalf("decode uploaded image: %v", err)
		}
		if cfg.Width < 200 || cfg.Height < 200 {
			t.Errorf("upload %dx%d, want shorter edge upscaled to 200", cfg.Width, cfg.Height)
		}
		w.Write([]byte(`{"data": {"crops": ["tomato"], "diagnoses_detected": true,
			"predicted_diagnoses": [{"common_name": "early blight", "diagnosis_likelihood": "likely"}]}}`))
	}))
	defer srv.Close()

	c, err := providers.NewLeafScanClient("ls", srv.URL)
	if err != nil {
		t.Fatalf("NewLeafScanClient: %v", err)
	}
	// Below the vendor's 200px minimum; the client must upscale before upload.
	raw, err := c.Analyze(context.Background(), jpegBytes(t, 120, 90), 9.0, 38.7, "en")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !raw.Data.DiagnosesDetected || raw.Data.PredictedDiagnoses[0].CommonName != "early blight" {
		t.Fatalf("raw = %+v", raw.Data)
	}
}

func TestHealthScreen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"HLT": 0.12, "NOT_HLT": 0.88}`))
	}))
	defer srv.Close()

	c := providers.NewHealthScreenClient(srv.URL)
	raw, err := c.Screen(context.Background(), jpegBytes(t, 300, 300))
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if raw["NOT_HLT"] != 0.88 {
		t.Fatalf("raw = %v", raw)
	}
}

func TestNormalizeImageBounds(t *testing.T) {
	out, err := providers.NormalizeImage(jpegBytes(t, 120, 90))
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode normalized image: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q", format)
	}
	shorter := cfg.Width
	if cfg.Height < shorter {
		shorter = cfg.Height
	}
	if shorter < 200 {
		t.Errorf("shorter edge = %d, want >= 200", shorter)
	}
}
