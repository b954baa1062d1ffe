package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// endpoint wraps a handler with the protections every wallet route
// shares: panic recovery, bearer-token auth and a single-method check,
// applied in that order so an unauthenticated caller learns nothing
// about which methods a path supports.
func endpoint(method, token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				slog.Error("handler panic", "path", r.URL.Path, "error", err, "trace", debug.Stack())
			}
		}()
		if !validToken(r, token) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != method {
			writeHttpError(w, http.StatusMethodNotAllowed, "only "+method+" method is supported")
			return
		}
		next(w, r)
	}
}

// validToken checks the Authorization header against the configured
// bearer token in constant time.
func validToken(r *http.Request, token string) bool {
	scheme, credential, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || scheme != "Bearer" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(token)) == 1
}
