package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/internal/chat"
)

// StartSession handles POST /api/chat/start-session.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	session, err := h.Chat.StartSession(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Could not start session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

// SendMessage handles POST /api/chat/send-message. The body is either JSON
// {session_id, message} or a multipart form with an optional image file that
// routes the turn through the diagnosis flow.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	req := chat.MessageRequest{PreferredLanguage: r.URL.Query().Get("preferred_language")}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		req.SessionID = r.FormValue("session_id")
		req.Message = r.FormValue("message")
		if _, _, err := r.FormFile("image"); err == nil {
			image, _, err := readUpload(r, "image", "image/")
			if err != nil {
				respondError(w, http.StatusBadRequest, "File must be an image")
				return
			}
			req.Image = image
		}
	} else {
		var body struct {
			SessionID string `json:"session_id"`
			Message   string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.SessionID = body.SessionID
		req.Message = body.Message
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	reply, err := h.Chat.SendMessage(r.Context(), user, req)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// SendVoiceMessage handles POST /api/chat/send-voice-message: a text message
// answered with text plus synthesized audio.
func (h *Handlers) SendVoiceMessage(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	reply, err := h.Chat.SendVoiceMessage(r.Context(), user, body.SessionID, body.Message, r.URL.Query().Get("preferred_language"))
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// SendAudioMessage handles POST /api/chat/send-audio-message: a spoken
// message transcribed and answered with text.
func (h *Handlers) SendAudioMessage(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	audio, _, err := readUpload(r, "audio_file", "audio/")
	if err != nil {
		if err == errWrongContentType {
			respondError(w, http.StatusBadRequest, "File must be an audio file")
			return
		}
		respondError(w, http.StatusBadRequest, "An audio file upload is required")
		return
	}

	reply, err := h.Chat.SendAudioMessage(r.Context(), user, sessionID, audio, r.URL.Query().Get("language"))
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

// VoiceConversation handles POST /api/chat/voice-conversation: a spoken
// message answered with text and audio. With ?stream=true the stages are
// sent as SSE events in the order detected_language, response_text, audio,
// done; failures after the stream opens become an error event.
func (h *Handlers) VoiceConversation(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	audio, _, err := readUpload(r, "audio_file", "audio/")
	if err != nil {
		if err == errWrongContentType {
			respondError(w, http.StatusBadRequest, "File must be an audio file")
			return
		}
		respondError(w, http.StatusBadRequest, "An audio file upload is required")
		return
	}
	language := r.URL.Query().Get("language")

	if r.URL.Query().Get("stream") != "true" {
		turn, err := h.Chat.VoiceConversation(r.Context(), user, sessionID, audio, language, nil)
		if err != nil {
			respondFlowError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, turn)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if _, err := h.Chat.VoiceConversation(r.Context(), user, sessionID, audio, language, emit); err != nil {
		log.Warn().Err(err).Msg("voice conversation stream failed")
		// Best effort: the client may already be gone.
		_ = emit("error", map[string]string{"message": userFacingError(err)})
	}
}

// userFacingError keeps provider detail out of streamed error events.
func userFacingError(err error) string {
	var lowConf *chat.LowConfidenceError
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return "Session not found"
	case errors.As(err, &lowConf):
		return lowConf.Error()
	default:
		return "Something went wrong, please try again"
	}
}

// ChatHistory handles GET /api/chat/history.
func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	messages, err := h.Chat.History(r.Context(), sessionID)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}
