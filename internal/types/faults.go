// Package types provides type definitions for structured data used throughout the data-autopilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
)

// FaultCategory classifies every error the system can surface.
type FaultCategory string

const (
	// FaultLoad indicates a malformed or unsupported data source. Never retried.
	FaultLoad FaultCategory = "load_fault"
	// FaultDetectionAmbiguity indicates no semantic type cleared the confidence
	// threshold. The column profile stays unknown; not fatal.
	FaultDetectionAmbiguity FaultCategory = "detection_ambiguity"
	// FaultTransformation indicates a transformation plan could not be
	// constructed or applied for a profile. The column is left untransformed.
	FaultTransformation FaultCategory = "transformation_fault"
	// FaultSyntax indicates a generated program failed to parse or validate.
	FaultSyntax FaultCategory = "syntax_fault"
	// FaultRuntime indicates a generated program failed while executing.
	FaultRuntime FaultCategory = "runtime_fault"
	// FaultResourceExceeded indicates the sandbox timeout or memory ceiling was
	// breached and the unit was forcibly terminated.
	FaultResourceExceeded FaultCategory = "resource_exceeded"
	// FaultProvider indicates the language-model interface was unreachable,
	// timed out, or returned a malformed response.
	FaultProvider FaultCategory = "provider_fault"
)

// Fault is a structured error carrying a category alongside a human-readable cause.
type Fault struct {
	Category FaultCategory `json:"category"`
	Message  string        `json:"message"`
	Cause    error         `json:"-"`
}

// NewFault creates a fault with a formatted message.
func NewFault(category FaultCategory, format string, args ...any) *Fault {
	return &Fault{Category: category, Message: fmt.Sprintf(format, args...)}
}

// WrapFault creates a fault wrapping an underlying error.
func WrapFault(category FaultCategory, err error, format string, args ...any) *Fault {
	return &Fault{Category: category, Message: fmt.Sprintf(format, args...), Cause: err}
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Category, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Category, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// CategoryOf extracts the fault category from an error chain.
// Errors that are not faults report FaultRuntime.
func CategoryOf(err error) FaultCategory {
	var f *Fault
	if errors.As(err, &f) {
		return f.Category
	}
	return FaultRuntime
}

// AsFault converts any error into a *Fault, preserving an existing category.
func AsFault(err error, fallback FaultCategory) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Category: fallback, Message: err.Error(), Cause: err}
}

// Fatal reports whether the category should stop a retry loop immediately.
func (c FaultCategory) Fatal() bool {
	return c == FaultLoad || c == FaultProvider
}
