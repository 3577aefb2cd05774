package remote

import "sync"

// Recorder keeps every invocation in memory.  Used by tests and by
// sessions that have no browser attached yet.
type Recorder struct {
	mu   sync.Mutex
	invs []Invocation
}

func (r *Recorder) Execute(inv Invocation) error {
	r.mu.Lock()
	r.invs = append(r.invs, inv)
	r.mu.Unlock()
	return nil
}

// Invocations returns a copy of what was recorded.
func (r *Recorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invs...)
}

// Reset drops recorded invocations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.invs = nil
	r.mu.Unlock()
}
