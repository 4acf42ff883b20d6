package domain

import (
	"errors"
	"fmt"
)

// Errors surfaced by the work record adapter.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal server error")
)

// Errors reported by object stores.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object exists already")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound builds the single opaque error used for every unresolvable id.
func NotFound(id string) error {
	return fmt.Errorf("%w: no work record with ID <%s> found", ErrNotFound, id)
}
