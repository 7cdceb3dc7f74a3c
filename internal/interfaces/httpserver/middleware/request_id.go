package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags every inbound request with an identifier and binds a logger
// carrying it to the context. A gateway that already sends X-Request-ID keeps
// its value, so its logs and ours correlate on the same ID.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			logger := log.With().Str("request_id", id).Logger()
			ctx := logger.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the identifier stored by RequestID, or "" when the
// context never passed through it.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
