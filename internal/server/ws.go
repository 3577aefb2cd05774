// internal/server/ws.go
//
// WebSocket session handler.
//
// Workflow
// --------
//  1. Resolve the app path and upgrade the connection.
//  2. Open (or, with ?session=<id>, rejoin) the session.
//  3. Attach a remote.Conn as the Document's executor and send the
//     document frame: the snapshot of every model.
//  4. Apply inbound messages under the session lock until the socket
//     drops.
//  5. Detach, then tear the session down unless KeepOnDisconnect or a
//     newer connection has attached to it.
//
// Inbound messages
// ----------------
//
//	{"type":"set",   "model":"<id>", "attr":"active", "value":true}
//	{"type":"event", "model":"<id>", "event":"button_click", "payload":{...}}
//	{"type":"click", "model":"<id>"}
//
// Values of the form {"id": "<model id>", "type": "..."} are replaced by
// the model they name.  A failing message is answered with an error
// frame; the socket stays open.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/app"
	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/model"
	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/session"
	"github.com/yanizio/widgetkit/internal/widget"
)

// Inbound message kinds.
const (
	MsgSet   = "set"
	MsgEvent = "event"
	MsgClick = "click"
)

// Message is one inbound frame.
type Message struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	Attr    string `json:"attr,omitempty"`
	Event   string `json:"event,omitempty"`
	Value   any    `json:"value,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// DocumentFrame is the payload of the first outbound frame.
type DocumentFrame struct {
	Session string           `json:"session"`
	Models  []model.Snapshot `json:"models"`
}

// ErrorFrame is the payload of an error frame.
type ErrorFrame struct {
	Model string `json:"model,omitempty"`
	Error string `json:"error"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	appPath := app.Normalize(chi.URLParam(r, "app"))
	if app.Lookup(appPath) == nil {
		http.NotFound(w, r)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("ws upgrade", "app", appPath, "err", err)
		return
	}

	sess, err := s.mgr.Open(r.Context(), r.URL.Query().Get("session"), appPath, ClientFrom(r))
	if err != nil {
		zap.S().Errorw("open session", "app", appPath, "err", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable")
		_ = ws.WriteMessage(websocket.CloseMessage, msg)
		_ = ws.Close()
		return
	}

	conn := remote.NewConn(ws, s.opts.SendBuffer)
	var exec remote.Executor = conn
	if s.opts.Fanout != nil {
		if extra := s.opts.Fanout(sess.ID()); extra != nil {
			exec = remote.Multi{conn, extra}
		}
	}
	token := sess.Attach(exec)

	err = sess.Do(func(doc *lifecycle.Document) error {
		return conn.Send(remote.FrameDocument, DocumentFrame{Session: sess.ID(), Models: doc.Snapshot()})
	})
	if err == nil {
		s.readLoop(ws, conn, sess)
	}

	current := sess.Detach(token)
	conn.Close()
	<-conn.Done()

	// A newer connection owns the session now.
	if s.opts.KeepOnDisconnect || !current {
		return
	}
	// Teardown errors are logged and counted by the manager.
	if err := s.mgr.Close(context.Background(), sess.ID(), session.ReasonClosed); err != nil &&
		!errors.Is(err, session.ErrNotFound) {
		zap.S().Debugw("close on disconnect", "session", sess.ID(), "err", err)
	}
}

func (s *Server) readLoop(ws *websocket.Conn, conn *remote.Conn, sess *session.Session) {
	ws.SetReadLimit(s.opts.ReadLimit)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.S().Debugw("ws read", "session", sess.ID(), "err", err)
			}
			return
		}

		msg, err := decodeMessage(data)
		if err == nil {
			err = sess.Do(func(doc *lifecycle.Document) error { return apply(doc, msg) })
		}
		if err != nil {
			if errors.Is(err, remote.ErrClosed) || errors.Is(err, remote.ErrSlowClient) {
				zap.S().Warnw("ws delivery", "session", sess.ID(), "err", err)
			}
			if serr := conn.Send(remote.FrameError, ErrorFrame{Model: msg.Model, Error: err.Error()}); serr != nil {
				return
			}
		}
	}
}

// decodeMessage keeps JSON numbers exact: integers decode to int64 so they
// satisfy Int properties, everything else to float64.
func decodeMessage(data []byte) (Message, error) {
	var msg Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	msg.Value = normalize(msg.Value)
	msg.Payload = normalize(msg.Payload)
	return msg, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	}
	return v
}

// resolveRefs swaps {"id": ..., "type": ...} objects naming a model of doc
// for the model itself, so Instance properties can be set over the wire.
func resolveRefs(doc *lifecycle.Document, v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = resolveRefs(doc, x[i])
		}
		return out
	case map[string]any:
		id, ok := x["id"].(string)
		if !ok || len(x) > 2 {
			return x
		}
		if _, typed := x["type"]; len(x) == 2 && !typed {
			return x
		}
		if inst, found := doc.Get(id); found {
			return inst
		}
	}
	return v
}

func apply(doc *lifecycle.Document, msg Message) error {
	inst, ok := doc.Get(msg.Model)
	if !ok {
		return fmt.Errorf("%s: unknown model %q", msg.Type, msg.Model)
	}
	switch msg.Type {
	case MsgSet:
		return inst.Set(msg.Attr, resolveRefs(doc, msg.Value))
	case MsgEvent:
		return inst.Fire(msg.Event, msg.Payload)
	case MsgClick:
		return widget.Click(inst)
	}
	return fmt.Errorf("unknown message type %q", msg.Type)
}
