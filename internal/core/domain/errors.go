package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParseIncomplete  = errors.New("command incomplete")
	ErrParseUnknown     = errors.New("command not understood")
	ErrProductNotFound  = errors.New("product not found")
	ErrMergeArithmetic  = errors.New("zero total quantity in weighted average")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// IncompleteError names the fields a recognized command is missing.
type IncompleteError struct {
	Action  Action
	Product string
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %s missing %s", ErrParseIncomplete, e.Action, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() error {
	return ErrParseIncomplete
}
