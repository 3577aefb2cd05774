// internal/remote/nats.go
//
// NATS executor.
//
// Deployments that render documents in a separate browser gateway publish
// invocations to NATS instead of writing to a socket.  Each session gets
// its own subject, `<prefix>.<session>.invoke`, so a gateway subscribes
// with `<prefix>.*.invoke` and routes by the middle token.
package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials NATS with unlimited reconnects.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Subject returns the per-session subject.
func Subject(prefix, session string) string {
	return prefix + "." + session + ".invoke"
}

// NATS publishes invocations for one session.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS binds conn to the session's subject.
func NewNATS(conn *nats.Conn, prefix, session string) *NATS {
	return &NATS{conn: conn, subject: Subject(prefix, session)}
}

// Subject reports where invocations are published.
func (n *NATS) Subject() string { return n.subject }

// Execute publishes inv as JSON.  Publish is buffered by the client and
// does not wait for subscribers.
func (n *NATS) Execute(inv Invocation) error {
	if n.conn == nil || n.conn.IsClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}
