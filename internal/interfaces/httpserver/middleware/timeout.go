package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// timeoutWriter discards writes arriving after the middleware has answered
// for the handler, so a handler finishing late cannot corrupt the reply.
type timeoutWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	aborted bool
	wrote   bool
}

func (t *timeoutWriter) WriteHeader(status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted {
		return
	}
	t.wrote = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *timeoutWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted {
		return len(b), nil
	}
	t.wrote = true
	return t.ResponseWriter.Write(b)
}

// abort answers for a handler that can no longer respond itself. The error
// response is skipped when the handler already started writing.
func (t *timeoutWriter) abort(status int, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborted = true
	if t.wrote {
		return
	}
	http.Error(t.ResponseWriter, msg, status)
}

// Timeout bounds request handling; the completion round trip is the slow path
// it exists for. The handler runs in its own goroutine, and a panic there is
// logged and turned into a 500 instead of taking the process down.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if v := recover(); v != nil {
						panicked <- v
						return
					}
					close(done)
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case v := <-panicked:
				log.Ctx(r.Context()).Error().
					Interface("panic", v).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				tw.abort(http.StatusInternalServerError, "internal server error")
			case <-ctx.Done():
				tw.abort(http.StatusGatewayTimeout, "request timed out")
			}
		})
	}
}
