// internal/remote/remote.go
//
// Remote execution boundary.
//
// Context
// -------
// Callbacks bound with a Remote target are never run in-process.  When a
// matching property change or event is dispatched, the model hands an
// Invocation to an Executor, which delivers it to the browser (or any
// other environment) and returns without waiting for a result.
//
// Executors must not block: adapters buffer and fail fast with
// ErrSlowClient instead.  Delivery errors propagate to the caller of the
// triggering Set or Fire like any other callback error.
package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by an executor whose transport has shut down.
	ErrClosed = errors.New("remote executor closed")

	// ErrSlowClient is returned when the outbound buffer is full.
	ErrSlowClient = errors.New("remote client too slow")
)

// Change is the payload of a property-change invocation.
type Change struct {
	Attr string `json:"attr"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Invocation carries one serialized handler and its arguments.
type Invocation struct {
	Model   string `json:"model"`   // instance ID
	Type    string `json:"type"`    // instance type name
	Event   string `json:"event"`   // event key: property name or semantic event
	Handler string `json:"handler"` // serialized browser-side code
	Payload any    `json:"payload"` // Change for property keys, event payload otherwise
}

// Executor delivers invocations to an external environment.
type Executor interface {
	Execute(inv Invocation) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(Invocation) error

func (f ExecutorFunc) Execute(inv Invocation) error { return f(inv) }

// Multi delivers to each executor in order and stops at the first error.
type Multi []Executor

func (m Multi) Execute(inv Invocation) error {
	for i, e := range m {
		if err := e.Execute(inv); err != nil {
			return fmt.Errorf("executor %d: %w", i, err)
		}
	}
	return nil
}
