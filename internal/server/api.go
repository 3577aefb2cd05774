package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/session"
	"github.com/yanizio/widgetkit/internal/sessionlog"
)

// propertyInfo is one resolved property.  Own marks names declared or
// overridden on the type itself rather than inherited unchanged.
type propertyInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
	Help    string `json:"help,omitempty"`
	Own     bool   `json:"own"`
}

type typeInfo struct {
	Name       string         `json:"name"`
	Parent     string         `json:"parent,omitempty"`
	Abstract   bool           `json:"abstract"`
	Properties []propertyInfo `json:"properties"`
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	nodes := s.reg.All()
	out := make([]typeInfo, 0, len(nodes))
	for _, n := range nodes {
		ti := typeInfo{Name: n.Name(), Abstract: n.Abstract()}
		if p := n.Parent(); p != nil {
			ti.Parent = p.Name()
		}
		own := make(map[string]bool)
		for _, d := range n.Own() {
			own[d.Name] = true
		}
		for _, d := range n.Properties() {
			ti.Properties = append(ti.Properties, propertyInfo{
				Name:    d.Name,
				Type:    d.Type.Name(),
				Default: d.Default,
				Help:    d.Help,
				Own:     own[d.Name],
			})
		}
		out = append(out, ti)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	list := s.mgr.List()
	if list == nil {
		list = []session.Info{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.mgr.Close(r.Context(), id, session.ReasonClosed)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		// The session is gone either way; report the failing callback.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.opts.History(r.Context(), limit)
	if err != nil {
		zap.S().Errorw("session history", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if recs == nil {
		recs = []sessionlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("write json", "err", err)
	}
}
