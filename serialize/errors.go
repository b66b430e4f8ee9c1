package serialize

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is reported when a structure names an attribute the
	// entity does not have.
	ErrMissingField = errors.New("missing field")
	// ErrNoIdentifier is reported when a related entity has no primary key.
	ErrNoIdentifier = errors.New("entity has no identifier")
	// ErrMaxDepth is reported when nesting exceeds the serializer's limit.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
	// ErrUnknownVariant is returned by DumpAs for unregistered variants.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrAlreadyRegistered is returned when a type is registered twice.
	ErrAlreadyRegistered = errors.New("type already registered")
	// ErrInvalidRule is returned by ParseYAML for unrecognized rules.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrNotSlice is returned by DumpMany for non-slice arguments.
	ErrNotSlice = errors.New("not a slice")
)

// SerializationError identifies the entity type and field that could not
// be serialized.
type SerializationError struct {
	Entity string
	Field  string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("serialize %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("serialize %s.%s: %v", e.Entity, e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
