// internal/server/security.go
//
// Security-header middleware.
//
// Injects standard headers on every response:
//
//   - Content-Security-Policy  self-only default policy
//   - X-Frame-Options          click-jacking defence
//   - X-Content-Type-Options   MIME-sniffing defence
//   - Referrer-Policy          drops path/query from Referer
//
// Headers are set before the handler runs because the websocket upgrade
// hijacks the connection and nothing written afterwards reaches the
// client.  Handlers may still overwrite any of them.
package server

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		csp = "default-src 'self'; connect-src 'self' ws: wss:; object-src 'none'; " +
			"base-uri 'self'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		next.ServeHTTP(w, r)
	})
}
