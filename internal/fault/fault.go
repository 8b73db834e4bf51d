// Package fault defines the error taxonomy shared by every choreography package.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks an unknown enum key or an out-of-range value.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnsupportedTarget marks a target lacking a required capability,
	// e.g. a node without a parent container for fragments.
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrRunPreempted is informational: the run was cancelled by a newer trigger.
	ErrRunPreempted = errors.New("run preempted")
)

// Invalid wraps ErrInvalidParameter with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidParameter)
}

// Unsupported wraps ErrUnsupportedTarget with a formatted message.
func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnsupportedTarget)
}
