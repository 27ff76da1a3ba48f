// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/acmlab/bmcfleet/lib/redfish"
)

// ErrorCategory classifies command errors so main can pick an exit
// code without parsing error text.
type ErrorCategory string

const (
	// CategoryValidation: the caller provided invalid input (missing
	// arguments, conflicting flags, unknown machine names).
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a referenced resource does not exist on the
	// BMC (account, license, resource path).
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the operation conflicts with existing state,
	// such as creating an account that already exists.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryInternal: an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by commands. It wraps an
// inner error so errors.Is and errors.As still see the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Code is the process exit code for the category: 2 for validation
// errors (as for flag parse failures), 1 otherwise. main still prints
// the message.
func (e *ToolError) Code() int {
	if e.Category == CategoryValidation {
		return 2
	}
	return 1
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps BMC errors whose kind maps onto a category. Other
// errors, and errors already categorized, are returned unchanged.
func Classify(err error) error {
	var toolErr *ToolError
	switch {
	case err == nil, errors.As(err, &toolErr):
		return err
	case errors.Is(err, redfish.ErrNotFound):
		return &ToolError{Category: CategoryNotFound, Err: err}
	case errors.Is(err, redfish.ErrAlreadyExists), errors.Is(err, redfish.ErrNoCapacity),
		errors.Is(err, redfish.ErrForbidden):
		return &ToolError{Category: CategoryConflict, Err: err}
	case errors.Is(err, redfish.ErrUnsupportedAction):
		return &ToolError{Category: CategoryValidation, Err: err}
	}
	return err
}
