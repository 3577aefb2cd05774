// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   - ReadTimeout   aborts slow-loris headers (10 s)
//   - WriteTimeout  caps total response time (15 s)
//   - IdleTimeout   closes keep-alives on idle clients (60 s)
//
// This helper centralises those defaults so cmd/web doesn't repeat
// boilerplate.  WebSocket connections are not affected: the upgrader
// clears the deadlines the server set before hijacking.
package server

import (
	"net/http"
	"time"
)

// Timeouts overrides the defaults; zero fields keep them.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// NewHTTP constructs an *http.Server with sensible defaults.
func NewHTTP(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  orDefault(t.Read, 10*time.Second),
		WriteTimeout: orDefault(t.Write, 15*time.Second),
		IdleTimeout:  orDefault(t.Idle, 60*time.Second),
		// TLSConfig may be injected by callers.
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
