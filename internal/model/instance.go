// internal/model/instance.go
//
// Live model instances and the change-notification bus.
//
// Context
// -------
// An Instance is a runtime object of a schema.TypeNode.  It stores only the
// values that were explicitly set; everything else resolves lazily to the
// nearest ancestor default, so a default changed by an override is seen by
// every instance that never set the property.
//
// Set validates the value, stores it, and then synchronously invokes every
// registration on the property's key in registration order.  Fire does the
// same for semantic events such as "button_click".
//
// Concurrency
// -----------
// An Instance is single-writer.  It takes no locks; callers that share an
// instance between goroutines serialize Set, Fire, and registration calls
// themselves.  Dispatch runs callbacks inline, so a callback that never
// returns blocks the caller indefinitely.
//
// Re-entrancy
// -----------
// A callback may call Set on the same or another instance.  There is no
// cycle detection: two callbacks that keep setting each other's property
// recurse until the stack runs out.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yanizio/widgetkit/internal/metrics"
	"github.com/yanizio/widgetkit/internal/property"
	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/schema"
)

var (
	// ErrDestroyed is returned by any operation on a destroyed instance.
	ErrDestroyed = errors.New("instance destroyed")

	// ErrReservedKey is returned when Fire is given a property name.
	// Property keys are dispatched by Set only.
	ErrReservedKey = errors.New("event key names a property")
)

// Instance is a live object conforming to a TypeNode's resolved schema.
type Instance struct {
	id        string
	typ       *schema.TypeNode
	values    map[string]any
	regs      map[string][]Registration
	nextID    RegistrationID
	exec      remote.Executor
	destroyed bool
}

// Option configures an Instance at construction.
type Option func(*Instance)

// WithExecutor routes Remote registrations to e.
func WithExecutor(e remote.Executor) Option { return func(i *Instance) { i.exec = e } }

// WithID replaces the generated UUID.
func WithID(id string) Option { return func(i *Instance) { i.id = id } }

// New instantiates t.  Each initial value must name a resolvable property
// and satisfy its type.  Initial values do not trigger callbacks.
func New(t *schema.TypeNode, initial map[string]any, opts ...Option) (*Instance, error) {
	if t == nil {
		return nil, fmt.Errorf("instantiate: nil type: %w", property.ErrUnknownType)
	}
	if t.Abstract() {
		return nil, fmt.Errorf("instantiate %s: %w", t.Name(), property.ErrAbstractInstantiation)
	}

	inst := &Instance{
		id:     uuid.NewString(),
		typ:    t,
		values: make(map[string]any, len(initial)),
		regs:   make(map[string][]Registration),
	}
	for _, o := range opts {
		o(inst)
	}

	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d, err := t.Resolve(k)
		if err != nil {
			return nil, fmt.Errorf("instantiate: %w", err)
		}
		if err := d.Validate(initial[k]); err != nil {
			return nil, fmt.Errorf("instantiate %s.%s: %w: %v", t.Name(), k, property.ErrInvalidDefault, err)
		}
		inst.values[k] = initial[k]
	}
	return inst, nil
}

func (i *Instance) ID() string             { return i.id }
func (i *Instance) Type() *schema.TypeNode { return i.typ }
func (i *Instance) Destroyed() bool        { return i.destroyed }

// IsA reports whether the instance's type is name or derives from it.  It
// makes *Instance usable as a property.Instance value.
func (i *Instance) IsA(name string) bool {
	return i != nil && i.typ.IsA(name)
}

// SetExecutor replaces the remote executor.  nil detaches it; Remote
// registrations are then kept but not delivered.
func (i *Instance) SetExecutor(e remote.Executor) { i.exec = e }

// Get returns the current value of name: the explicitly set value, or the
// most-derived default.
func (i *Instance) Get(name string) (any, error) {
	if i.destroyed {
		return nil, fmt.Errorf("get %s.%s: %w", i.typ.Name(), name, ErrDestroyed)
	}
	d, err := i.typ.Resolve(name)
	if err != nil {
		return nil, err
	}
	return i.current(d), nil
}

// IsSet reports whether name was explicitly set on this instance.
func (i *Instance) IsSet(name string) bool {
	_, ok := i.values[name]
	return ok
}

// Values returns every resolved property value.
func (i *Instance) Values() map[string]any {
	props := i.typ.Properties()
	out := make(map[string]any, len(props))
	for _, d := range props {
		out[d.Name] = i.current(d)
	}
	return out
}

func (i *Instance) current(d property.Descriptor) any {
	if v, ok := i.values[d.Name]; ok {
		return v
	}
	return d.Default
}

// Set validates and stores value, then notifies callbacks registered on
// name with (name, old, new).  Notification happens on every accepted
// write, including writes of an equal value.
func (i *Instance) Set(name string, value any) error {
	if i.destroyed {
		return fmt.Errorf("set %s.%s: %w", i.typ.Name(), name, ErrDestroyed)
	}
	d, err := i.typ.Resolve(name)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if err := d.Validate(value); err != nil {
		return fmt.Errorf("set %s.%s: %w: %v", i.typ.Name(), name, property.ErrTypeMismatch, err)
	}

	old := i.current(d)
	i.values[name] = value
	metrics.PropertySetsTotal.Inc()

	return i.dispatch(Event{Key: name, Attr: name, Old: old, New: value})
}

// Fire dispatches a semantic event to the registrations on key.
func (i *Instance) Fire(key string, payload any) error {
	if i.destroyed {
		return fmt.Errorf("fire %s %s: %w", i.typ.Name(), key, ErrDestroyed)
	}
	if _, err := i.typ.Resolve(key); err == nil {
		return fmt.Errorf("fire %s %s: %w", i.typ.Name(), key, ErrReservedKey)
	}
	return i.dispatch(Event{Key: key, Payload: payload})
}

// dispatch walks a snapshot of the registrations taken before the first
// callback runs.  Registrations added or removed by a callback apply to
// the next dispatch.  The first error aborts the rest.
func (i *Instance) dispatch(ev Event) error {
	regs := i.regs[ev.Key]
	if len(regs) == 0 {
		return nil
	}
	snapshot := append([]Registration(nil), regs...)

	for _, r := range snapshot {
		switch r.Target {
		case Local:
			metrics.CallbacksInvokedTotal.WithLabelValues("local").Inc()
			if err := r.Local(ev); err != nil {
				metrics.CallbackErrorsTotal.WithLabelValues("local").Inc()
				return fmt.Errorf("%s %s callback %d: %w", i.typ.Name(), ev.Key, r.ID, err)
			}
		case Remote:
			if i.exec == nil {
				continue
			}
			metrics.CallbacksInvokedTotal.WithLabelValues("remote").Inc()
			if err := i.exec.Execute(i.invocation(r, ev)); err != nil {
				metrics.CallbackErrorsTotal.WithLabelValues("remote").Inc()
				return fmt.Errorf("%s %s remote callback %d: %w", i.typ.Name(), ev.Key, r.ID, err)
			}
		}
	}
	return nil
}

func (i *Instance) invocation(r Registration, ev Event) remote.Invocation {
	var payload any = ev.Payload
	if ev.Attr != "" {
		payload = remote.Change{Attr: ev.Attr, Old: ev.Old, New: ev.New}
	}
	return remote.Invocation{
		Model:   i.id,
		Type:    i.typ.Name(),
		Event:   ev.Key,
		Handler: r.Code,
		Payload: payload,
	}
}

// Destroy drops values, registrations, and the executor.  Later calls on
// the instance fail with ErrDestroyed.
func (i *Instance) Destroy() {
	i.destroyed = true
	i.values = nil
	i.regs = nil
	i.exec = nil
}

func (i *Instance) String() string { return i.typ.Name() + "(" + i.id + ")" }
