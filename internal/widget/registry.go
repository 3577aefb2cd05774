// internal/widget/registry.go
//
// Widget catalog and installation helpers.
//
// A **Definition** describes one model type: its name, its parent, and
// the property descriptors it declares or overrides.  Built-in widgets
// live in this package and register themselves from init(); application
// packages can add their own with `widget.Register(widget.Definition{...})`
// in the same way.
//
// The catalog is global and append-only.  Install copies it into a
// schema.Registry, parents first.
//
//	reg := schema.New()
//	if err := widget.Install(reg); err != nil { ... }
//	btn, _ := reg.Lookup("Button")
package widget

import (
	"fmt"
	"sync"

	"github.com/yanizio/widgetkit/internal/property"
	"github.com/yanizio/widgetkit/internal/schema"
)

// Definition is one catalog entry.  Parent is empty for roots.
type Definition struct {
	Name       string
	Parent     string
	Abstract   bool
	Properties []property.Descriptor
}

var (
	mu      sync.RWMutex
	catalog []Definition
	byName  = map[string]int{}
)

// Register a definition during init().  A duplicate name panics, because
// two packages claiming the same type is a wiring bug.
func Register(d Definition) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := byName[d.Name]; dup {
		panic(fmt.Sprintf("widget: duplicate definition %q", d.Name))
	}
	byName[d.Name] = len(catalog)
	catalog = append(catalog, d)
}

// Lookup returns the definition or false.
func Lookup(name string) (Definition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	n, ok := byName[name]
	if !ok {
		return Definition{}, false
	}
	return catalog[n], true
}

// All returns a copy of the catalog in registration order.
func All() []Definition {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Definition(nil), catalog...)
}

// Install registers every catalog definition in reg.  Types already in reg
// under the same name are skipped, so Install is safe to call on a
// registry that was partly populated from YAML.  Definitions are taken in
// registration order, deferring any whose parent is not yet installed.
func Install(reg *schema.Registry) error {
	pending := All()
	for len(pending) > 0 {
		var next []Definition
		for _, d := range pending {
			if _, ok := reg.Lookup(d.Name); ok {
				continue
			}
			var parent *schema.TypeNode
			if d.Parent != "" {
				p, ok := reg.Lookup(d.Parent)
				if !ok {
					next = append(next, d)
					continue
				}
				parent = p
			}
			if _, err := reg.RegisterType(d.Name, parent, d.Properties, d.Abstract); err != nil {
				return fmt.Errorf("widget %s: %w", d.Name, err)
			}
		}
		if len(next) == len(pending) {
			d := next[0]
			return fmt.Errorf("widget %s: parent %s: %w", d.Name, d.Parent, property.ErrUnknownType)
		}
		pending = next
	}
	return nil
}
