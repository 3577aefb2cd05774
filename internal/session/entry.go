// internal/session/entry.go
//
// Live session aggregate.
//
// Context
// -------
// A Session bundles everything the server needs to serve one browser
// connection: the SessionContext handed to lifecycle callbacks, the
// application path it was opened on, and a mutex that serializes access to
// the session's Document.  The manager stores a pointer to Session along
// with a `lastSeen` UnixNano timestamp used by the evictor for idle and
// LRU eviction.
//
// Notes
// -----
//   - Models are single-writer.  Every read or write of the Document goes
//     through Session.Do, which holds the mutex and refreshes lastSeen.
//   - The manager is the only caller of teardown; handlers never destroy a
//     Document themselves.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/remote"
)

// Session is one attached browser session.
type Session struct {
	Context *lifecycle.SessionContext
	App     string

	mu       sync.Mutex
	gen      uint64       // bumped by Attach
	attached atomic.Bool  // a transport holds the current token
	lastSeen atomic.Int64 // UnixNano
}

func newSession(sc *lifecycle.SessionContext, appPath string) *Session {
	s := &Session{Context: sc, App: appPath}
	s.touch()
	return s
}

func (s *Session) ID() string                    { return s.Context.ID }
func (s *Session) Document() *lifecycle.Document { return s.Context.Document() }
func (s *Session) touch()                        { s.lastSeen.Store(time.Now().UnixNano()) }

// LastSeen returns the time of the last Do call.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Do runs fn with exclusive access to the session's Document.
func (s *Session) Do(fn func(doc *lifecycle.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return fn(s.Document())
}

// Attach routes the Document's remote callbacks to e and returns a token
// for Detach.  A later Attach replaces e.
func (s *Session) Attach(e remote.Executor) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.Document().SetExecutor(e)
	s.attached.Store(true)
	s.touch()
	return s.gen
}

// Detach clears the executor installed by the Attach that returned token.
// It reports false, and leaves the executor alone, when another Attach has
// happened since.  Remote registrations stay in place either way.  The
// idle timer restarts at detach.
func (s *Session) Detach(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != token {
		return false
	}
	s.Document().SetExecutor(nil)
	s.attached.Store(false)
	s.touch()
	return true
}

// Attached reports whether a transport is attached.  The evictor never
// reaps attached sessions.
func (s *Session) Attached() bool { return s.attached.Load() }

// Info is the JSON view of a session used by the admin API.
type Info struct {
	ID       string    `json:"id"`
	App      string    `json:"app"`
	Models   int       `json:"models"`
	Browser  string    `json:"browser,omitempty"`
	IP       string    `json:"ip,omitempty"`
	Attached bool      `json:"attached"`
	Opened   time.Time `json:"opened"`
	LastSeen time.Time `json:"last_seen"`
}

func (s *Session) info() Info {
	s.mu.Lock()
	n := len(s.Document().Instances())
	s.mu.Unlock()
	return Info{
		ID:       s.ID(),
		App:      s.App,
		Models:   n,
		Browser:  s.Context.Client.Browser,
		IP:       s.Context.Client.IP,
		Attached: s.Attached(),
		Opened:   s.Context.Opened,
		LastSeen: s.LastSeen(),
	}
}
