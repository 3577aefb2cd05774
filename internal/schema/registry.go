// internal/schema/registry.go
//
// Property registry.
//
// Context
// -------
// A Registry is an arena of TypeNodes keyed by name.  Registration is
// append-only: a node can only name a parent that is already registered,
// and nothing is ever re-parented.  Override descriptors are completed at
// registration time by matching them to the nearest ancestor declaration,
// so lookups never need to special-case them.
//
// Workflow
// --------
//
//	reg := schema.New()
//	base, _ := reg.RegisterType("Base", nil, []property.Descriptor{
//	    property.MustDeclare("x", property.Int, 1),
//	}, true)
//	derived, _ := reg.RegisterType("Derived", base, []property.Descriptor{
//	    property.Override("x", 2),
//	}, false)
//	d, _ := reg.Resolve(derived, "x") // d.Default == 2
//
// Notes
// -----
// The registry is guarded by an RWMutex because catalogs register from
// init() and request goroutines read.  TypeNodes themselves are immutable.
package schema

import (
	"fmt"
	"sync"

	"github.com/yanizio/widgetkit/internal/property"
)

// Registry holds declared types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeNode
	order []*TypeNode
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]*TypeNode)}
}

// RegisterType declares a type.  parent may be nil for a root type and must
// otherwise belong to this registry.
func (r *Registry) RegisterType(name string, parent *TypeNode, props []property.Descriptor, abstract bool) (*TypeNode, error) {
	if name == "" {
		return nil, fmt.Errorf("register type: empty name: %w", property.ErrUnknownType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.types[name]; dup {
		return nil, fmt.Errorf("register %s: %w", name, property.ErrDuplicateType)
	}
	if parent != nil {
		if r.types[parent.name] != parent {
			return nil, fmt.Errorf("register %s: parent %s: %w", name, parent.name, property.ErrUnknownType)
		}
		if err := checkChain(name, parent, len(r.order)); err != nil {
			return nil, err
		}
	}

	node := &TypeNode{
		name:     name,
		parent:   parent,
		abstract: abstract,
		props:    make([]property.Descriptor, 0, len(props)),
		index:    make(map[string]int, len(props)),
	}
	for _, d := range props {
		if _, dup := node.index[d.Name]; dup {
			return nil, fmt.Errorf("register %s.%s: %w", name, d.Name, property.ErrDuplicateProperty)
		}
		resolved, err := complete(name, parent, d)
		if err != nil {
			return nil, err
		}
		node.index[d.Name] = len(node.props)
		node.props = append(node.props, resolved)
	}

	r.types[name] = node
	r.order = append(r.order, node)
	return node, nil
}

// checkChain walks the parent chain looking for name.  Append-only
// registration makes a loop unreachable; the walk is bounded by the number
// of registered types regardless.
func checkChain(name string, parent *TypeNode, limit int) error {
	steps := 0
	for n := parent; n != nil; n = n.parent {
		if n.name == name || steps > limit {
			return fmt.Errorf("register %s: %w", name, property.ErrCyclicInheritance)
		}
		steps++
	}
	return nil
}

// complete validates one own descriptor and fills in inherited fields for
// overrides.  An inherited property keeps its value type in every subtype.
func complete(owner string, parent *TypeNode, d property.Descriptor) (property.Descriptor, error) {
	if d.Name == "" {
		return d, fmt.Errorf("register %s: empty property name: %w", owner, property.ErrInvalidDefault)
	}

	if !d.Override {
		if d.Type == nil {
			return d, fmt.Errorf("register %s.%s: nil type: %w", owner, d.Name, property.ErrInvalidDefault)
		}
		if err := d.Type.Validate(d.Default); err != nil {
			return d, fmt.Errorf("register %s.%s: %w: %v", owner, d.Name, property.ErrInvalidDefault, err)
		}
		// A plain redeclaration may replace the default and help text but
		// never the value type.
		if parent != nil {
			if base, found := parent.lookup(d.Name); found && !property.Equal(d.Type, base.Type) {
				return d, fmt.Errorf("register %s.%s: %s redeclares %s: %w",
					owner, d.Name, d.Type.Name(), base.Type.Name(), property.ErrTypeMismatch)
			}
		}
		return d, nil
	}

	var (
		base  property.Descriptor
		found bool
	)
	if parent != nil {
		base, found = parent.lookup(d.Name)
	}
	if !found {
		return d, fmt.Errorf("register %s.%s: %w", owner, d.Name, property.ErrNoSuchProperty)
	}
	if d.Type != nil && !property.Equal(d.Type, base.Type) {
		return d, fmt.Errorf("register %s.%s: %s overrides %s: %w",
			owner, d.Name, d.Type.Name(), base.Type.Name(), property.ErrTypeMismatch)
	}
	if err := base.Type.Validate(d.Default); err != nil {
		return d, fmt.Errorf("register %s.%s: %w: %v", owner, d.Name, property.ErrTypeMismatch, err)
	}

	d.Type = base.Type
	if d.Help == "" {
		d.Help = base.Help
	}
	return d, nil
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*TypeNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Resolve returns the most-derived descriptor named prop on t.
func (r *Registry) Resolve(t *TypeNode, prop string) (property.Descriptor, error) {
	if t == nil {
		return property.Descriptor{}, fmt.Errorf("resolve %s: nil type: %w", prop, property.ErrUnknownType)
	}
	return t.Resolve(prop)
}

// All returns every registered type in registration order.
func (r *Registry) All() []*TypeNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*TypeNode(nil), r.order...)
}
