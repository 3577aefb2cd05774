// evictor.go houses the eviction loop for Manager.  Every EvictInterval it
// scans the map and closes detached sessions:
//
//   - sessions idle longer than IdleTTL
//   - least-recently-used sessions when the map size exceeds MaxSessions
//
// A session with a transport attached is never evicted, however quiet it
// is; it becomes a candidate once Detach restarts its idle timer.
//
// Each eviction runs the session's teardown callbacks like any other close
// and updates Prometheus counters.
package session

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/metrics"
)

// Run sweeps on every tick until ctx is done, then closes the remaining
// sessions.  It always returns nil so it can sit in an errgroup.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.opts.EvictInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; journal writes get a fresh one.
			_ = m.CloseAll(context.Background(), ReasonShutdown)
			return nil
		case now := <-t.C:
			m.Sweep(ctx, now)
		}
	}
}

// Sweep evicts idle sessions, then applies LRU pressure.  It returns the
// number of sessions evicted.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	type kv struct {
		id string
		at int64
	}
	var (
		live    []kv
		pinned  int
		evicted int
	)

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	m.m.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.Attached() {
			pinned++
			return true
		}
		at := s.lastSeen.Load()
		idle := now.Sub(time.Unix(0, at))
		if idle > m.opts.IdleTTL {
			zap.S().Infow("session evicted", "session", key, "idle", idle.Truncate(time.Second))
			m.evict(ctx, key.(string), ReasonIdle)
			evicted++
			return true
		}
		live = append(live, kv{id: key.(string), at: at})
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	// Attached sessions count toward MaxSessions but only detached ones
	// are reaped.
	if over := pinned + len(live) - m.opts.MaxSessions; m.opts.MaxSessions > 0 && over > 0 {
		sort.Slice(live, func(i, j int) bool { return live[i].at < live[j].at })
		for i := 0; i < over && i < len(live); i++ {
			zap.S().Infow("session evicted (LRU pressure)", "session", live[i].id)
			m.evict(ctx, live[i].id, ReasonPressure)
			evicted++
		}
	}
	return evicted
}

func (m *Manager) evict(ctx context.Context, id, reason string) {
	metrics.SessionEvictTotal.Inc()
	// Teardown errors are already logged and counted by Close.
	_ = m.Close(ctx, id, reason)
}
