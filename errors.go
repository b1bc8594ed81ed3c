package ddtengine

import (
	"errors"
	"fmt"

	"github.com/jtronge/mpicd-ddtengine/internal/driver"
	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
)

// Error represents a structured ddtengine error with enough context to
// diagnose which handle or transfer failed and why.
type Error struct {
	Op     string    // Operation that failed (e.g. "Register", "Progress")
	Handle Handle    // Datatype handle involved (zero value if not applicable)
	Code   ErrorCode // High-level error category
	Msg    string    // Human-readable message
	Inner  error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" && e.Handle != 0 {
		return fmt.Sprintf("ddtengine: %s (op=%s handle=%d)", msg, e.Op, e.Handle)
	}
	if e.Op != "" {
		return fmt.Sprintf("ddtengine: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("ddtengine: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support by comparing error codes.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode categorizes ddtengine errors at a level callers can branch on
// without inspecting message text.
type ErrorCode string

const (
	ErrCodeInvalidArgument  ErrorCode = "invalid argument"
	ErrCodeUnknownHandle    ErrorCode = "unknown datatype handle"
	ErrCodeDatatypeInUse    ErrorCode = "datatype in use"
	ErrCodeUnsupported      ErrorCode = "unsupported"
	ErrCodeCallbackFailed   ErrorCode = "user callback failed"
	ErrCodeSizeMismatch     ErrorCode = "region size mismatch"
	ErrCodeRegionPlanFailed ErrorCode = "region plan failed"
	ErrCodeCancelled        ErrorCode = "transfer cancelled"
	ErrCodeTransportFailure ErrorCode = "transport failure"
	ErrCodeInternal         ErrorCode = "internal error"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewHandleError creates a new handle-specific error.
func NewHandleError(op string, handle Handle, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Handle: handle, Code: code, Msg: msg}
}

// WrapError wraps an existing error with ddtengine context, reusing the
// wrapped error's code and handle if it is already a *Error. Otherwise the
// inner error is classified against the sentinel errors the internal
// driver/memregion packages use to mark specific failure categories
// (spec.md section 6's error code vocabulary), falling back to
// ErrCodeCallbackFailed for an ordinary user-callback failure.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if de, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			Handle: de.Handle,
			Code:   de.Code,
			Msg:    de.Msg,
			Inner:  de.Inner,
		}
	}
	return &Error{
		Op:    op,
		Code:  classifyErrorCode(inner),
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// classifyErrorCode maps an internal sentinel error to the public
// ErrorCode vocabulary.
func classifyErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, memregion.ErrSizeMismatch):
		return ErrCodeSizeMismatch
	case errors.Is(err, driver.ErrRegionPlanFailed):
		return ErrCodeRegionPlanFailed
	case errors.Is(err, driver.ErrInternal):
		return ErrCodeInternal
	default:
		return ErrCodeCallbackFailed
	}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
