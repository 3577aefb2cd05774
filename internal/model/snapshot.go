package model

import (
	"encoding/json"
	"sort"
)

// Ref is how one instance refers to another on the wire.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// MarshalJSON encodes an instance as a Ref so values that hold other
// models (a button's callback, a dropdown menu entry) serialize flat.
func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(Ref{ID: i.id, Type: i.typ.Name()})
}

// Snapshot is the browser-facing view of an instance: resolved attributes
// plus the remote bindings the browser must install.
type Snapshot struct {
	ID                  string              `json:"id"`
	Type                string              `json:"type"`
	Attributes          map[string]any      `json:"attributes"`
	JSPropertyCallbacks map[string][]string `json:"js_property_callbacks,omitempty"`
	JSEventCallbacks    map[string][]string `json:"js_event_callbacks,omitempty"`
}

// Snapshot captures the instance's current state.
func (i *Instance) Snapshot() Snapshot {
	s := Snapshot{
		ID:         i.id,
		Type:       i.typ.Name(),
		Attributes: i.Values(),
	}

	keys := make([]string, 0, len(i.regs))
	for k := range i.regs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := i.typ.Resolve(k)
		isProp := err == nil
		for _, r := range i.regs[k] {
			if r.Target != Remote {
				continue
			}
			if isProp {
				if s.JSPropertyCallbacks == nil {
					s.JSPropertyCallbacks = make(map[string][]string)
				}
				s.JSPropertyCallbacks[k] = append(s.JSPropertyCallbacks[k], r.Code)
			} else {
				if s.JSEventCallbacks == nil {
					s.JSEventCallbacks = make(map[string][]string)
				}
				s.JSEventCallbacks[k] = append(s.JSEventCallbacks[k], r.Code)
			}
		}
	}
	return s
}
