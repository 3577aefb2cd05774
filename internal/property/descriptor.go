// internal/property/descriptor.go
//
// Property descriptors.
//
// Context
// -------
// A Descriptor is a typed, named slot with a default.  Declared
// descriptors carry their own Type.  Override descriptors replace an
// ancestor's default and are only complete once the schema registry has
// matched them to the ancestor declaration: Override leaves Type nil and
// inherits it, OverrideAs states a Type that must equal the ancestor's.
//
// Defaults are shared by every instance that does not set the property, so
// slice and map defaults must be treated as read-only.
package property

import "fmt"

// Descriptor defines one property slot.
type Descriptor struct {
	Name     string
	Type     Type // nil only on a pending Override
	Default  any
	Override bool
	Help     string
}

// Declare returns a descriptor after checking def against t.
func Declare(name string, t Type, def any) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("declare: empty property name: %w", ErrInvalidDefault)
	}
	if t == nil {
		return Descriptor{}, fmt.Errorf("declare %s: nil type: %w", name, ErrInvalidDefault)
	}
	if err := t.Validate(def); err != nil {
		return Descriptor{}, fmt.Errorf("declare %s %s: %w: %v", name, t.Name(), ErrInvalidDefault, err)
	}
	return Descriptor{Name: name, Type: t, Default: def}, nil
}

// MustDeclare is Declare for package-level declarations.  It panics on error.
func MustDeclare(name string, t Type, def any) Descriptor {
	d, err := Declare(name, t, def)
	if err != nil {
		panic(err)
	}
	return d
}

// Override returns a pending override that inherits the ancestor's type.
func Override(name string, def any) Descriptor {
	return Descriptor{Name: name, Default: def, Override: true}
}

// OverrideAs returns a pending override that states its type explicitly.
// Registration fails with ErrTypeMismatch when t differs from the
// ancestor's type.
func OverrideAs(name string, t Type, def any) Descriptor {
	return Descriptor{Name: name, Type: t, Default: def, Override: true}
}

// WithHelp returns a copy of d carrying help text.
func (d Descriptor) WithHelp(help string) Descriptor {
	d.Help = help
	return d
}

// Validate checks v against the descriptor's type.
func (d Descriptor) Validate(v any) error {
	if d.Type == nil {
		return fmt.Errorf("%s: unresolved override: %w", d.Name, ErrNoSuchProperty)
	}
	return d.Type.Validate(v)
}

func (d Descriptor) String() string {
	t := "?"
	if d.Type != nil {
		t = d.Type.Name()
	}
	if d.Override {
		return fmt.Sprintf("%s:%s=%v (override)", d.Name, t, d.Default)
	}
	return fmt.Sprintf("%s:%s=%v", d.Name, t, d.Default)
}
