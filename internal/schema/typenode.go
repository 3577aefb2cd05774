// internal/schema/typenode.go
//
// TypeNode is one declared model type: its own descriptors, an optional
// parent, and an abstract flag.  Nodes are immutable after registration.
package schema

import (
	"fmt"

	"github.com/yanizio/widgetkit/internal/property"
)

// TypeNode is a declared type in a single-inheritance chain.
type TypeNode struct {
	name     string
	parent   *TypeNode
	abstract bool
	props    []property.Descriptor
	index    map[string]int
}

func (t *TypeNode) Name() string      { return t.name }
func (t *TypeNode) Parent() *TypeNode { return t.parent }
func (t *TypeNode) Abstract() bool    { return t.abstract }

// Own returns a copy of the descriptors declared directly on t.
func (t *TypeNode) Own() []property.Descriptor {
	return append([]property.Descriptor(nil), t.props...)
}

// Ancestry returns t followed by its ancestors, most-derived first.
func (t *TypeNode) Ancestry() []*TypeNode {
	var out []*TypeNode
	for n := t; n != nil; n = n.parent {
		out = append(out, n)
	}
	return out
}

// IsA reports whether t is name or derives from it.
func (t *TypeNode) IsA(name string) bool {
	for n := t; n != nil; n = n.parent {
		if n.name == name {
			return true
		}
	}
	return false
}

// Resolve walks derived to base and returns the first descriptor named prop.
func (t *TypeNode) Resolve(prop string) (property.Descriptor, error) {
	if d, ok := t.lookup(prop); ok {
		return d, nil
	}
	return property.Descriptor{}, fmt.Errorf("%s.%s: %w", t.name, prop, property.ErrUnknownProperty)
}

func (t *TypeNode) lookup(prop string) (property.Descriptor, bool) {
	for n := t; n != nil; n = n.parent {
		if i, ok := n.index[prop]; ok {
			return n.props[i], true
		}
	}
	return property.Descriptor{}, false
}

// Properties returns the resolved schema of t.  Names appear in the order
// they were first declared, base types first; each entry is the
// most-derived descriptor for that name.
func (t *TypeNode) Properties() []property.Descriptor {
	chain := t.Ancestry()
	var (
		out []property.Descriptor
		pos = map[string]int{}
	)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, d := range chain[i].props {
			if at, seen := pos[d.Name]; seen {
				out[at] = d
				continue
			}
			pos[d.Name] = len(out)
			out = append(out, d)
		}
	}
	return out
}

func (t *TypeNode) String() string { return t.name }
