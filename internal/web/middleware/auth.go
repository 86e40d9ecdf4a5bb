package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyAuth guards the JSON API. A key is read from X-API-Key or from an
// "Authorization: Bearer" header. With no keys configured the API is open.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(accepted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestAPIKey(r)
			switch {
			case key == "":
				slog.Warn("api request without key", "path", r.URL.Path)
				denyAPI(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
			case !keyAccepted([]byte(key), accepted):
				slog.Warn("api request with unknown key", "path", r.URL.Path)
				denyAPI(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestAPIKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// keyAccepted compares key against every accepted key in constant time.
func keyAccepted(key []byte, accepted [][]byte) bool {
	match := 0
	for _, a := range accepted {
		match |= subtle.ConstantTimeCompare(key, a)
	}
	return match == 1
}

func denyAPI(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
