package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// openPaths are reachable without a key: the health check and the Prometheus
// scrape target.
var openPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Auth requires a bearer token matching the configured API key on the message
// endpoint. An empty key disables the check, the usual setup when the
// WhatsApp gateway and the engine share a host.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing or malformed bearer token", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
