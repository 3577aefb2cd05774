// internal/lifecycle/document.go
//
// Document: the per-session container of model instances.
//
// Context
// -------
// A Document owns every Instance built for one session, the remote
// executor those instances forward to, and the lifecycle callbacks the
// application registered on it.  Like Instance it is single-writer; the
// session server serializes access per session.
//
// Notes
// -----
//   - Instances created through the Document inherit its executor.
//     Replacing the executor re-targets every instance.
//   - Destroy runs after session teardown, never before, so
//     session_destroyed callbacks can still read the models.
package lifecycle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yanizio/widgetkit/internal/model"
	"github.com/yanizio/widgetkit/internal/property"
	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/schema"
)

// SessionDestroyed is the event key for session teardown callbacks.
const SessionDestroyed = "session_destroyed"

// SessionCallback receives the SessionContext being torn down.
type SessionCallback func(sc *SessionContext) error

// Document groups the instances of one session.
type Document struct {
	id        string
	reg       *schema.Registry
	exec      remote.Executor
	models    []*model.Instance
	byID      map[string]*model.Instance
	callbacks map[string][]SessionCallback
	destroyed bool
}

// NewDocument returns an empty document whose types resolve against reg.
func NewDocument(reg *schema.Registry) *Document {
	return &Document{
		id:        uuid.NewString(),
		reg:       reg,
		byID:      make(map[string]*model.Instance),
		callbacks: make(map[string][]SessionCallback),
	}
}

func (d *Document) ID() string                 { return d.id }
func (d *Document) Registry() *schema.Registry { return d.reg }

// SetExecutor sets the remote executor for the document and every
// instance it holds.
func (d *Document) SetExecutor(e remote.Executor) {
	d.exec = e
	for _, m := range d.models {
		m.SetExecutor(e)
	}
}

// Create instantiates the named type and adds it to the document.
func (d *Document) Create(typeName string, initial map[string]any) (*model.Instance, error) {
	t, ok := d.reg.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("create %s: %w", typeName, property.ErrUnknownType)
	}
	inst, err := model.New(t, initial)
	if err != nil {
		return nil, err
	}
	if err := d.Add(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Add attaches an existing instance.
func (d *Document) Add(inst *model.Instance) error {
	if d.destroyed {
		return fmt.Errorf("add %s: document destroyed", inst)
	}
	if _, dup := d.byID[inst.ID()]; dup {
		return fmt.Errorf("add %s: duplicate model id", inst)
	}
	inst.SetExecutor(d.exec)
	d.models = append(d.models, inst)
	d.byID[inst.ID()] = inst
	return nil
}

// Get returns the instance with id.
func (d *Document) Get(id string) (*model.Instance, bool) {
	m, ok := d.byID[id]
	return m, ok
}

// Instances returns the instances in the order they were added.
func (d *Document) Instances() []*model.Instance {
	return append([]*model.Instance(nil), d.models...)
}

// Snapshot returns the browser-facing state of every instance.
func (d *Document) Snapshot() []model.Snapshot {
	out := make([]model.Snapshot, 0, len(d.models))
	for _, m := range d.models {
		out = append(out, m.Snapshot())
	}
	return out
}

// OnSessionDestroyed appends teardown callbacks.  They run in the order
// they were added.
func (d *Document) OnSessionDestroyed(fns ...SessionCallback) {
	d.callbacks[SessionDestroyed] = append(d.callbacks[SessionDestroyed], fns...)
}

// Callbacks returns a copy of the callbacks registered under key.
func (d *Document) Callbacks(key string) []SessionCallback {
	return append([]SessionCallback(nil), d.callbacks[key]...)
}

// Destroy destroys every instance and drops the callbacks.
func (d *Document) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	for _, m := range d.models {
		m.Destroy()
	}
	d.models = nil
	d.byID = map[string]*model.Instance{}
	d.callbacks = map[string][]SessionCallback{}
	d.exec = nil
}

// Destroyed reports whether Destroy has run.
func (d *Document) Destroyed() bool { return d.destroyed }
