package modal

import (
	"errors"
	"strings"
)

var (
	ErrNotOpen      = errors.New("modal is not open")
	ErrNotEditing   = errors.New("modal is not editing a stored appointment")
	ErrUnknownField = errors.New("unknown form field")
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError lists every reason the form cannot be saved.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid appointment: " + strings.Join(e.Reasons, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
