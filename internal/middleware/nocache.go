package middleware

import "net/http"

// NoStore marks responses as uncacheable. API responses are per-user and
// must never be served from a shared or browser cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
