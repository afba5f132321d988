// Package domain holds the error taxonomy shared by the journal engines.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced depot, security, position
	// or profile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for operations that contradict current
	// state, e.g. closing an already-closed position or reusing a
	// unique name.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when an input violates a field or type
	// constraint. The wrapped message names the violated rule.
	ErrValidation = errors.New("validation failed")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
