package card

import (
	"errors"
	"fmt"
)

var (
	ErrMissingName        = errors.New("name is required")
	ErrMissingDescription = errors.New("description is required")
)

// ValidationError reports a card that cannot be repaired.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid card field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
