// internal/remote/remote_test.go
//
// Unit-tests for remote executors.
//
// Context
// -------
// Conn is exercised against a real gorilla/websocket pair served by
// httptest; NATS is checked without a server since a nil connection must
// behave as closed.
//
// Run: go test ./internal/remote -v

package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestRecorderAndMulti(t *testing.T) {
	var a, b Recorder
	boom := errors.New("boom")
	failing := ExecutorFunc(func(Invocation) error { return boom })

	m := Multi{&a, failing, &b}
	if err := m.Execute(Invocation{Model: "m1", Event: "button_click"}); !errors.Is(err, boom) {
		t.Fatalf("Execute err = %v, want boom", err)
	}

	if n := len(a.Invocations()); n != 1 {
		t.Errorf("first recorder saw %d invocations, want 1", n)
	}
	if n := len(b.Invocations()); n != 0 {
		t.Errorf("delivery should stop at the failing executor, last recorder saw %d", n)
	}

	a.Reset()
	if n := len(a.Invocations()); n != 0 {
		t.Errorf("after Reset: %d invocations", n)
	}
}

func TestConnDeliversFrames(t *testing.T) {
	afterClose := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(ws, 4)
		_ = c.Execute(Invocation{
			Model:   "m1",
			Type:    "Toggle",
			Event:   "active",
			Handler: "console.log(cb_obj.active)",
			Payload: Change{Attr: "active", Old: false, New: true},
		})
		c.Close()
		c.Close()
		afterClose <- c.Send(FrameError, "late")
		<-c.Done()
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame struct {
		Type    string     `json:"type"`
		Payload Invocation `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if frame.Type != FrameInvoke {
		t.Errorf("frame type = %q", frame.Type)
	}
	if frame.Payload.Model != "m1" || frame.Payload.Handler != "console.log(cb_obj.active)" {
		t.Errorf("payload = %+v", frame.Payload)
	}
	want := map[string]any{"attr": "active", "old": false, "new": true}
	if !reflect.DeepEqual(frame.Payload.Payload, want) {
		t.Errorf("change = %v, want %v", frame.Payload.Payload, want)
	}

	if err := <-afterClose; !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestNATSSubjectAndClosedConn(t *testing.T) {
	n := NewNATS(nil, "widgetkit", "abc")
	if got := n.Subject(); got != "widgetkit.abc.invoke" {
		t.Errorf("subject = %q", got)
	}
	if err := n.Execute(Invocation{Model: "m1"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Execute on nil conn = %v, want ErrClosed", err)
	}
}
