package daemon

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
)

// authMiddleware guards a handler with a bearer token. An empty token
// disables authentication entirely; otherwise every request must carry
// "Authorization: Bearer <token>". Token comparison is constant time.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
			return
		}
		next(w, r)
	}
}
