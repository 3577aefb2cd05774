// internal/lifecycle/dispatcher.go
//
// Session lifecycle dispatch.
//
// Context
// -------
// A SessionContext moves from Attached to Destroyed exactly once.  The
// session manager calls Dispatcher.Teardown when the transport drops or
// the session idles out; the dispatcher flips the state and runs each
// Handler's OnSessionDestroyed.  DocumentHandler, the default handler,
// invokes the Document's session_destroyed callbacks in registration
// order, passing the same SessionContext to each.
//
// Failure policy
// --------------
// Callback errors are not caught.  The first failure aborts the remaining
// callbacks of that teardown and is returned to the caller.  The session
// stays Destroyed; a second Teardown returns ErrSessionDestroyed and runs
// nothing.
package lifecycle

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yanizio/widgetkit/internal/ua"
)

// ErrSessionDestroyed is returned by Teardown on an already destroyed
// session.
var ErrSessionDestroyed = errors.New("session already destroyed")

// State of a session.
type State int32

const (
	Attached State = iota
	Destroyed
)

func (s State) String() string {
	if s == Destroyed {
		return "destroyed"
	}
	return "attached"
}

// SessionContext is what lifecycle callbacks receive.
type SessionContext struct {
	ID     string
	Client ua.Info
	Opened time.Time

	doc   *Document
	state atomic.Int32
}

// NewSessionContext binds a session to its document.  The context does not
// own the document.
func NewSessionContext(id string, doc *Document, client ua.Info) *SessionContext {
	return &SessionContext{ID: id, Client: client, Opened: time.Now().UTC(), doc: doc}
}

// Document returns the session's document.
func (sc *SessionContext) Document() *Document { return sc.doc }

// State reports Attached or Destroyed.
func (sc *SessionContext) State() State { return State(sc.state.Load()) }

// Handler reacts to session lifecycle transitions.
type Handler interface {
	OnSessionCreated(sc *SessionContext) error
	OnSessionDestroyed(sc *SessionContext) error
}

// DocumentHandler runs the callbacks registered on the session's Document.
type DocumentHandler struct{}

func (DocumentHandler) OnSessionCreated(*SessionContext) error { return nil }

func (DocumentHandler) OnSessionDestroyed(sc *SessionContext) error {
	for n, cb := range sc.Document().Callbacks(SessionDestroyed) {
		if err := cb(sc); err != nil {
			return fmt.Errorf("session %s: %s callback %d: %w", sc.ID, SessionDestroyed, n, err)
		}
	}
	return nil
}

// Dispatcher runs a fixed list of handlers.
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher uses DocumentHandler when no handlers are given.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	if len(handlers) == 0 {
		handlers = []Handler{DocumentHandler{}}
	}
	return &Dispatcher{handlers: handlers}
}

// Created runs OnSessionCreated on each handler in order.
func (d *Dispatcher) Created(sc *SessionContext) error {
	if sc.State() == Destroyed {
		return fmt.Errorf("session %s: %w", sc.ID, ErrSessionDestroyed)
	}
	for _, h := range d.handlers {
		if err := h.OnSessionCreated(sc); err != nil {
			return err
		}
	}
	return nil
}

// Teardown moves sc to Destroyed and runs OnSessionDestroyed on each
// handler.  It is one-shot.
func (d *Dispatcher) Teardown(sc *SessionContext) error {
	if !sc.state.CompareAndSwap(int32(Attached), int32(Destroyed)) {
		return fmt.Errorf("session %s: %w", sc.ID, ErrSessionDestroyed)
	}
	for _, h := range d.handlers {
		if err := h.OnSessionDestroyed(sc); err != nil {
			return err
		}
	}
	return nil
}
