// internal/property/errors.go
//
// Declaration and validation error taxonomy.
//
// Every error here signals a programmer mistake in a type declaration or a
// bad value handed to a setter.  Callers wrap them with context using
// fmt.Errorf("...: %w") and match with errors.Is.  Nothing is retried.
package property

import "errors"

var (
	// ErrInvalidDefault is returned when a default or initial value does not
	// satisfy the property's value type.
	ErrInvalidDefault = errors.New("invalid default")

	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrUnknownType is returned when a parent type is not registered.
	ErrUnknownType = errors.New("unknown type")

	// ErrDuplicateProperty is returned when one declaration lists a property
	// name more than once.
	ErrDuplicateProperty = errors.New("duplicate property")

	// ErrUnknownProperty is returned when no type in the chain declares the
	// property.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrTypeMismatch is returned when a value or override disagrees with the
	// declared value type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAbstractInstantiation is returned when instantiating an abstract type.
	ErrAbstractInstantiation = errors.New("abstract type cannot be instantiated")

	// ErrNoSuchProperty is returned when an override has no ancestor
	// declaration to shadow.
	ErrNoSuchProperty = errors.New("override of undeclared property")

	// ErrCyclicInheritance is returned when a parent chain would loop.
	ErrCyclicInheritance = errors.New("cyclic inheritance")
)
