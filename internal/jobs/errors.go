package jobs

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition indicates a status change outside the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound indicates no job matched the requested identifier.
var ErrNotFound = errors.New("job not found")

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
