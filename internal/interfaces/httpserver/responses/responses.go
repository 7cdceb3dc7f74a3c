package responses

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/interfaces/httpserver/middleware"
)

// JSON encodes payload with the request ID echoed in the header, so the
// gateway can match replies to the messages it forwarded.
func JSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set("X-Request-ID", id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// Error reports a failure as {"error": ..., "request_id": ...}. The message
// is addressed to the gateway operator; anything meant for the chat user
// travels in the messages array of a normal reply instead.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id,omitempty"`
	}{
		Error:     message,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}
