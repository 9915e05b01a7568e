// This file converts panics raised inside external capabilities (tree induction,
// out-of-fold evaluation) into structured errors so a misbehaving collaborator
// cannot take the host process down.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// RecoverAs is meant to be deferred around a call into an external capability.
// A recovered panic is reported as a ModelError of the given kind wrapping a
// PanicError; an error already stored in *err is kept as is.
//
// Usage:
//
//	func (m *TreeModel) induce() (t *tree.Tree, err error) {
//	    defer RecoverAs(&err, "TreeModel.Fit", KindInductionFailure)
//	    return m.inducer.Induce(...)
//	}
func RecoverAs(err *error, operation, kind string) {
	r := recover()
	if r == nil {
		return
	}
	panicErr := NewPanicError(operation, r)
	if *err != nil {
		*err = fmt.Errorf("%w (original error: %v)", NewModelError(operation, kind, panicErr), *err)
		return
	}
	*err = NewModelError(operation, kind, panicErr)
}

// SafeInvoke runs fn and converts a panic into a ModelError of the given kind.
func SafeInvoke(operation, kind string, fn func() error) (err error) {
	defer RecoverAs(&err, operation, kind)
	return fn()
}
