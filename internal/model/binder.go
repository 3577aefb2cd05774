// internal/model/binder.go
//
// Dual-target callback binding.
//
// A Registration targets either Local (a Go callback run inline during
// dispatch) or Remote (serialized code handed to the instance's
// remote.Executor).  Both kinds share one ordered list per event key, so a
// mix of local and remote callbacks runs in the order it was bound.
package model

import (
	"errors"
	"fmt"
)

// Target selects where a callback runs.
type Target int

const (
	Local Target = iota
	Remote
)

func (t Target) String() string {
	switch t {
	case Local:
		return "local"
	case Remote:
		return "remote"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Event is what a Local callback receives.  Attr, Old, and New are set for
// property changes; Payload is set for semantic events.
type Event struct {
	Key     string
	Attr    string
	Old     any
	New     any
	Payload any
}

// Callback is a Local handler.
type Callback func(ev Event) error

// ChangeFunc receives (attr, old, new) for property changes.
type ChangeFunc func(attr string, old, new any) error

// EventFunc receives the payload of a semantic event.
type EventFunc func(payload any) error

// RegistrationID identifies a registration on its instance.
type RegistrationID uint64

// Registration binds one handler to one event key.
type Registration struct {
	ID     RegistrationID
	Key    string
	Target Target
	Local  Callback // set when Target == Local
	Code   string   // set when Target == Remote
}

// Register appends a registration.  Duplicates are allowed.
func (i *Instance) Register(key string, target Target, local Callback, code string) (RegistrationID, error) {
	if i.destroyed {
		return 0, fmt.Errorf("register %s %s: %w", i.typ.Name(), key, ErrDestroyed)
	}
	if key == "" {
		return 0, errors.New("register: empty event key")
	}
	switch target {
	case Local:
		if local == nil {
			return 0, fmt.Errorf("register %s %s: nil local callback", i.typ.Name(), key)
		}
	case Remote:
		if code == "" {
			return 0, fmt.Errorf("register %s %s: empty remote handler", i.typ.Name(), key)
		}
	default:
		return 0, fmt.Errorf("register %s %s: unknown %s", i.typ.Name(), key, target)
	}

	i.nextID++
	r := Registration{ID: i.nextID, Key: key, Target: target}
	if target == Local {
		r.Local = local
	} else {
		r.Code = code
	}
	i.regs[key] = append(i.regs[key], r)
	return r.ID, nil
}

// BindLocal registers fn to run in-process on key.
func (i *Instance) BindLocal(key string, fn Callback) (RegistrationID, error) {
	return i.Register(key, Local, fn, "")
}

// BindRemote registers serialized code to be forwarded on key.
func (i *Instance) BindRemote(key, code string) (RegistrationID, error) {
	return i.Register(key, Remote, nil, code)
}

// OnChange registers fn for changes of attr.  attr must be a property of
// the instance's type.
func (i *Instance) OnChange(attr string, fn ChangeFunc) (RegistrationID, error) {
	if _, err := i.typ.Resolve(attr); err != nil {
		return 0, fmt.Errorf("on change: %w", err)
	}
	if fn == nil {
		return 0, fmt.Errorf("on change %s.%s: nil callback", i.typ.Name(), attr)
	}
	return i.BindLocal(attr, func(ev Event) error { return fn(ev.Attr, ev.Old, ev.New) })
}

// JSOnChange registers browser-side code for changes of attr.
func (i *Instance) JSOnChange(attr, code string) (RegistrationID, error) {
	if _, err := i.typ.Resolve(attr); err != nil {
		return 0, fmt.Errorf("js on change: %w", err)
	}
	return i.BindRemote(attr, code)
}

// OnEvent registers fn for the semantic event key.
func (i *Instance) OnEvent(key string, fn EventFunc) (RegistrationID, error) {
	if fn == nil {
		return 0, fmt.Errorf("on event %s %s: nil callback", i.typ.Name(), key)
	}
	return i.BindLocal(key, func(ev Event) error { return fn(ev.Payload) })
}

// JSOnEvent registers browser-side code for the semantic event key.
func (i *Instance) JSOnEvent(key, code string) (RegistrationID, error) {
	return i.BindRemote(key, code)
}

// Remove deletes the registration with id.  It reports whether one was
// found.
func (i *Instance) Remove(id RegistrationID) bool {
	for key, regs := range i.regs {
		for n, r := range regs {
			if r.ID != id {
				continue
			}
			rest := make([]Registration, 0, len(regs)-1)
			rest = append(rest, regs[:n]...)
			rest = append(rest, regs[n+1:]...)
			if len(rest) == 0 {
				delete(i.regs, key)
			} else {
				i.regs[key] = rest
			}
			return true
		}
	}
	return false
}

// Registrations returns a copy of the registrations on key.
func (i *Instance) Registrations(key string) []Registration {
	return append([]Registration(nil), i.regs[key]...)
}
