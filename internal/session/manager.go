package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/widgetkit/internal/app"
	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/metrics"
	"github.com/yanizio/widgetkit/internal/schema"
	"github.com/yanizio/widgetkit/internal/ua"
)

// Static defaults.  Override via config.
const (
	IdleTTL       = 30 * time.Minute
	MaxSessions   = 1000
	EvictInterval = time.Minute
)

// Reasons recorded when a session ends.
const (
	ReasonClosed   = "closed"
	ReasonIdle     = "idle"
	ReasonPressure = "lru"
	ReasonShutdown = "shutdown"
)

var (
	// ErrNotFound is returned when no session has the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownApp is returned by Open for a path with no registered app.
	ErrUnknownApp = errors.New("no application at path")
)

// Journal records session boundaries.  Failures are logged and never stop
// a session from opening or closing.
type Journal interface {
	Opened(ctx context.Context, sc *lifecycle.SessionContext, appPath string) error
	Closed(ctx context.Context, id, reason string, teardownErr error) error
}

// Options tune eviction.  Zero values fall back to the package defaults;
// a negative MaxSessions disables LRU pressure.
type Options struct {
	IdleTTL       time.Duration
	MaxSessions   int
	EvictInterval time.Duration
	Journal       Journal
}

// Manager opens sessions lazily, stores them in a sync.Map, and tears them
// down on close, idle TTL, or LRU pressure.
type Manager struct {
	reg  *schema.Registry
	disp *lifecycle.Dispatcher
	opts Options
	sfg  singleflight.Group
	m    sync.Map // id → *Session
}

// NewManager builds documents against reg and tears sessions down through
// disp.  Call Run to start the evictor.
func NewManager(reg *schema.Registry, disp *lifecycle.Dispatcher, opts Options) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = IdleTTL
	}
	if opts.MaxSessions == 0 {
		opts.MaxSessions = MaxSessions
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = EvictInterval
	}
	if disp == nil {
		disp = lifecycle.NewDispatcher()
	}
	return &Manager{reg: reg, disp: disp, opts: opts}
}

// Open returns the session with id, creating it on first use by running
// the application registered at appPath.  An empty id allocates a new one.
// Concurrent opens of the same id share one build.
func (m *Manager) Open(ctx context.Context, id, appPath string, client ua.Info) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.Get(id); ok {
		return s, nil
	}

	v, err, _ := m.sfg.Do(id, func() (any, error) {
		// Double-check after singleflight barrier.
		if v, ok := m.m.Load(id); ok {
			return v.(*Session), nil
		}
		build := app.Lookup(appPath)
		if build == nil {
			return nil, fmt.Errorf("open %s: %w: %s", id, ErrUnknownApp, appPath)
		}

		doc := lifecycle.NewDocument(m.reg)
		if err := build(doc); err != nil {
			doc.Destroy()
			return nil, fmt.Errorf("open %s: build %s: %w", id, appPath, err)
		}
		sc := lifecycle.NewSessionContext(id, doc, client)
		if err := m.disp.Created(sc); err != nil {
			doc.Destroy()
			return nil, fmt.Errorf("open %s: %w", id, err)
		}

		s := newSession(sc, app.Normalize(appPath))
		m.m.Store(id, s)
		metrics.SessionOpenTotal.Inc()
		metrics.ActiveSessions.Inc()
		zap.S().Infow("session opened", "session", id, "app", s.App, "browser", client.Browser, "ip", client.IP)

		if j := m.opts.Journal; j != nil {
			if err := j.Opened(ctx, sc, s.App); err != nil {
				zap.S().Warnw("session journal", "session", id, "err", err)
			}
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns the session with id and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	v, ok := m.m.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	s.touch()
	return s, true
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	n := 0
	m.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// List returns every live session ordered by open time.
func (m *Manager) List() []Info {
	var out []Info
	m.m.Range(func(_, v any) bool {
		out = append(out, v.(*Session).info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Opened.Before(out[j].Opened) })
	return out
}

// Close detaches the session, runs its teardown callbacks, and destroys
// its Document.  The teardown error, if any, is returned after the
// Document has been destroyed.
func (m *Manager) Close(ctx context.Context, id, reason string) error {
	v, ok := m.m.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrNotFound)
	}
	s := v.(*Session)

	s.mu.Lock()
	err := m.disp.Teardown(s.Context)
	s.Document().Destroy()
	s.mu.Unlock()

	metrics.ActiveSessions.Dec()
	metrics.SessionDestroyedTotal.Inc()
	if err != nil {
		metrics.TeardownErrorsTotal.Inc()
		zap.S().Errorw("session teardown", "session", id, "reason", reason, "err", err)
	} else {
		zap.S().Infow("session destroyed", "session", id, "reason", reason)
	}

	if j := m.opts.Journal; j != nil {
		if jerr := j.Closed(ctx, id, reason, err); jerr != nil {
			zap.S().Warnw("session journal", "session", id, "err", jerr)
		}
	}
	return err
}

// CloseAll tears down every session.  It returns the first teardown error.
func (m *Manager) CloseAll(ctx context.Context, reason string) error {
	var ids []string
	m.m.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	var first error
	for _, id := range ids {
		if err := m.Close(ctx, id, reason); err != nil && !errors.Is(err, ErrNotFound) && first == nil {
			first = err
		}
	}
	return first
}
