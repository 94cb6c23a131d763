package handlers

import (
	"io"
	"net/http"
	"strings"
)

// maxUploadBytes caps multipart uploads (images and voice notes).
const maxUploadBytes = 20 << 20

// readUpload pulls one uploaded file out of a multipart request and checks
// its declared content type against the wanted prefix ("image/", "audio/").
func readUpload(r *http.Request, field, wantPrefix string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if wantPrefix != "" && !strings.HasPrefix(contentType, wantPrefix) {
		return nil, contentType, errWrongContentType
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, contentType, err
	}
	return data, contentType, nil
}

var errWrongContentType = contentTypeError{}

type contentTypeError struct{}

func (contentTypeError) Error() string { return "unexpected content type" }

// Diagnose handles POST /api/crop-health/diagnose: a multipart image upload
// run through the multi-provider diagnosis flow.
func (h *Handlers) Diagnose(w http.ResponseWriter, r *http.Request) {
	image, _, err := readUpload(r, "image", "image/")
	if err != nil {
		if err == errWrongContentType {
			respondError(w, http.StatusBadRequest, "File must be an image")
			return
		}
		respondError(w, http.StatusBadRequest, "An image file upload is required")
		return
	}

	lat, _ := queryFloat(r, "lat")
	lon, _ := queryFloat(r, "lon")

	outcome, err := h.Flows.Diagnose(r.Context(), image, lat, lon, "en")
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}
