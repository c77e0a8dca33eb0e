package flipper

import (
	"errors"
	"fmt"
)

// ErrInvalidActor is returned when an actor mutation receives a nil actor
// or one with an empty identifier.
var ErrInvalidActor = errors.New("flipper: actor must have a non-empty id")

// ErrReadOnly is returned by the readonly adapter for every write.
var ErrReadOnly = errors.New("flipper: adapter is read-only")

// GroupNotRegisteredError is returned when a mutation names a group that
// has not been registered. Evaluation never returns it: unknown groups
// silently produce false there.
type GroupNotRegisteredError struct {
	Name string
}

func (e GroupNotRegisteredError) Error() string {
	return fmt.Sprintf("flipper: group %q not registered", e.Name)
}

// PercentageInvalidError is returned when a percentage mutation falls
// outside [0, 100].
type PercentageInvalidError struct {
	Value int
}

func (e PercentageInvalidError) Error() string {
	return fmt.Sprintf("flipper: percentage must be between 0 and 100, got %d", e.Value)
}

// GateNotFoundError is returned by the generic Enable/Disable routing when
// no gate protects the given value.
type GateNotFoundError struct {
	Thing any
}

func (e GateNotFoundError) Error() string {
	return fmt.Sprintf("flipper: no gate found for %v (%T)", e.Thing, e.Thing)
}
