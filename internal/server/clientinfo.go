// internal/server/clientinfo.go
//
// HTTP middleware that enriches each request with the client's ua.Info.
//
// Context
// -------
// The middleware parses the User-Agent header and the client address once
// and stores the result in the request context under an unexported key.
// The websocket handler reads it back to seed the SessionContext, so
// session_destroyed callbacks see the browser that opened the session.
//
// When the logger runs at debug level each request logs the browser,
// device class, bot flag, and path.
package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/ua"
)

type ctxKey struct{}

// ClientInfo wraps an http.Handler, attaches ua.Info, and forwards.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := ua.FromRequest(r)
		zap.S().Debugw("client info",
			"ip", info.IP,
			"browser", info.Browser,
			"device", info.Device,
			"bot", info.IsBot,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// ClientFrom returns the ua.Info stored by ClientInfo, or a fresh parse of
// r when the middleware did not run.
func ClientFrom(r *http.Request) ua.Info {
	if info, ok := r.Context().Value(ctxKey{}).(ua.Info); ok {
		return info
	}
	return ua.FromRequest(r)
}
