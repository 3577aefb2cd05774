// internal/property/types.go
//
// Value types for property descriptors.
//
// Context
// -------
// A Type names the shape of a property value and validates candidates
// structurally: tag match for scalars, membership for enums, and element
// checks for lists and tuples.  It is not a schema language.  Two types are
// equal when their canonical names are equal, so
//
//	List(Tuple(String, Either(String, Instance(Callback))))
//
// built in Go compares equal to the same expression parsed from YAML.
//
// Notes
// -----
//   - Float accepts Go integers as well as floats.  Int rejects floats.
//   - Instance(T) accepts nil or any value implementing Instancer whose
//     IsA(T) reports true.  Subtypes therefore satisfy their ancestors.
package property

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Type validates property values.
type Type interface {
	Name() string
	Validate(v any) error
}

// Instancer is implemented by values that can stand in for Instance(T).
type Instancer interface {
	IsA(typeName string) bool
}

//
// Scalars
//

type scalar struct {
	name string
	ok   func(any) bool
}

func (s scalar) Name() string { return s.name }

func (s scalar) Validate(v any) error {
	if s.ok(v) {
		return nil
	}
	return mismatch(s.name, v)
}

var (
	Bool   Type = scalar{"Bool", func(v any) bool { _, ok := v.(bool); return ok }}
	Int    Type = scalar{"Int", isInt}
	Float  Type = scalar{"Float", func(v any) bool { return isInt(v) || isFloat(v) }}
	String Type = scalar{"String", func(v any) bool { _, ok := v.(string); return ok }}
	Any    Type = scalar{"Any", func(any) bool { return true }}
)

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

//
// Enum
//

type enum struct{ values []string }

// Enum accepts one of the listed strings.  Panics when values is empty.
func Enum(values ...string) Type {
	if len(values) == 0 {
		panic("property: Enum requires at least one value")
	}
	return enum{values: append([]string(nil), values...)}
}

func (e enum) Name() string {
	quoted := make([]string, len(e.values))
	for i, v := range e.values {
		quoted[i] = strconv.Quote(v)
	}
	return "Enum(" + strings.Join(quoted, ", ") + ")"
}

func (e enum) Validate(v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(e.Name(), v)
	}
	for _, allowed := range e.values {
		if s == allowed {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", s, e.Name())
}

// Values returns the allowed strings of an Enum type, or nil for any other
// type.
func Values(t Type) []string {
	if e, ok := t.(enum); ok {
		return append([]string(nil), e.values...)
	}
	return nil
}

//
// Sequences
//

type list struct{ elem Type }

// List accepts a slice or array whose elements all satisfy elem.
func List(elem Type) Type { return list{elem: elem} }

func (l list) Name() string { return "List(" + l.elem.Name() + ")" }

func (l list) Validate(v any) error {
	rv, ok := sequence(v)
	if !ok {
		return mismatch(l.Name(), v)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := l.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type tuple struct{ elems []Type }

// Tuple accepts a slice or array of exactly len(elems) items, each
// satisfying the type at the same position.
func Tuple(elems ...Type) Type { return tuple{elems: append([]Type(nil), elems...)} }

func (t tuple) Name() string { return "Tuple(" + joinNames(t.elems) + ")" }

func (t tuple) Validate(v any) error {
	rv, ok := sequence(v)
	if !ok {
		return mismatch(t.Name(), v)
	}
	if rv.Len() != len(t.elems) {
		return fmt.Errorf("expected %d items for %s, got %d", len(t.elems), t.Name(), rv.Len())
	}
	for i, et := range t.elems {
		if err := et.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func sequence(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv, true
	}
	return reflect.Value{}, false
}

//
// Combinators
//

type either struct{ alts []Type }

// Either accepts a value satisfying any of alts.
func Either(alts ...Type) Type { return either{alts: append([]Type(nil), alts...)} }

func (e either) Name() string { return "Either(" + joinNames(e.alts) + ")" }

func (e either) Validate(v any) error {
	for _, a := range e.alts {
		if a.Validate(v) == nil {
			return nil
		}
	}
	return mismatch(e.Name(), v)
}

type nullable struct{ inner Type }

// Nullable accepts nil or a value satisfying inner.
func Nullable(inner Type) Type { return nullable{inner: inner} }

func (n nullable) Name() string { return "Nullable(" + n.inner.Name() + ")" }

func (n nullable) Validate(v any) error {
	if isNil(v) {
		return nil
	}
	return n.inner.Validate(v)
}

type instance struct{ typeName string }

// Instance accepts nil or a model whose type is typeName or derives from it.
func Instance(typeName string) Type { return instance{typeName: typeName} }

func (i instance) Name() string { return "Instance(" + i.typeName + ")" }

func (i instance) Validate(v any) error {
	if isNil(v) {
		return nil
	}
	if m, ok := v.(Instancer); ok && m.IsA(i.typeName) {
		return nil
	}
	return mismatch(i.Name(), v)
}

//
// Helpers
//

// Equal reports whether two types have the same canonical name.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name() == b.Name()
}

func joinNames(ts []Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func mismatch(want string, got any) error {
	if got == nil {
		return fmt.Errorf("expected %s, got nil", want)
	}
	return fmt.Errorf("expected %s, got %T", want, got)
}
