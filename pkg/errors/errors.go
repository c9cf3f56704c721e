// Package errors provides the unified error type and factory functions for the
// chemistry toolkit.  Every layer (domain, application, infrastructure,
// interfaces) uses AppError as the single carrier for structured error
// information, so HTTP responses, CLI exit messages and logs stay consistent.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout the toolkit.
// It supports Go 1.13+ wrapping so errors.Is / errors.As / errors.Unwrap work
// across all layers.
//
// Usage:
//
//	return errors.New(errors.ErrCodeNotation, "unbalanced ring closure 1")
//	return errors.Wrap(dbErr, errors.ErrCodeDatabaseError, "failed to load fragment")
//	return errors.RGroupNotFound(3).WithDetail("molecule " + id)
type AppError struct {
	// Code identifies the failure category.  It drives the HTTP status, the
	// gRPC status and the CLI exit message; see codes.go for the mapping.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary context (notation fragment, site index...).
	Detail string

	// Cause is the underlying error, if any.  It is exposed through Unwrap so
	// errors.Is and errors.As see through the AppError.
	Cause error

	// Stack is the call stack captured at creation.  It is not part of Error()
	// and is never written to responses.
	Stack string
}

// Error implements the error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, allowing the standard library to walk
// the chain:
//
//	var pgErr *pgconn.PgError
//	if errors.As(appErr, &pgErr) { ... }
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.  The
// receiver is left untouched, so shared sentinel errors can be decorated per
// call site:
//
//	return errors.RGroupNotFound(idx).WithDetail("left molecule " + id)
//
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
// Use it when the code and message are chosen first and the underlying error
// is attached afterwards; otherwise prefer Wrap.  Nil receivers yield nil.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message and captures
// the caller's stack.  New is the preferred factory when there is no
// underlying error to wrap; the convenience factories below cover the common
// codes.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps err.  A nil err yields nil so Wrap can
// be used inline:
//
//	mol, err := repo.Get(ctx, id)
//	if err != nil {
//		return nil, errors.Wrap(err, errors.CodeUnknown, "load molecule")
//	}
//
// When err already carries an AppError and code is CodeUnknown, the original
// code is preserved, so a not-found from the repository stays a not-found.
// Any other code replaces it.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with code.
// Unlike GetCode it looks past the outermost AppError:
//
//	if errors.IsCode(err, errors.ErrCodeRGroupConsumed) {
//		// the site was used by an earlier merge
//	}
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain carries one of the not-found codes
// (generic, fragment or R-group), so callers can treat any miss alike
// without enumerating codes.
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case ErrCodeNotFound, ErrCodeFragmentNotFound, ErrCodeRGroupNotFound:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
// A nil error yields CodeOK; a foreign error yields CodeUnknown.  Only the
// outermost AppError counts, which is the code a Wrap call site chose.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs an ErrCodeBadRequest AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message, Stack: captureStack(1)}
}

// Conflict constructs an ErrCodeConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message, Stack: captureStack(1)}
}

// Internal constructs an ErrCodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Stack: captureStack(1)}
}

// Notation reports malformed chemical notation.
func Notation(message string) *AppError {
	return &AppError{Code: ErrCodeNotation, Message: message, Stack: captureStack(1)}
}

// RGroupNotFound reports a missing R-group site.
func RGroupNotFound(index int) *AppError {
	return &AppError{
		Code:    ErrCodeRGroupNotFound,
		Message: fmt.Sprintf("R-group R%d not found", index),
		Stack:   captureStack(1),
	}
}

// RGroupConsumed reports a site that was already resolved by a merge.
func RGroupConsumed(index int) *AppError {
	return &AppError{
		Code:    ErrCodeRGroupConsumed,
		Message: fmt.Sprintf("R-group R%d already consumed", index),
		Stack:   captureStack(1),
	}
}

// RGroupIncompatible reports a pair of sites that cannot be joined.
func RGroupIncompatible(indexA, indexB int) *AppError {
	return &AppError{
		Code:    ErrCodeRGroupIncompatible,
		Message: fmt.Sprintf("R-groups R%d and R%d cannot be joined", indexA, indexB),
		Stack:   captureStack(1),
	}
}
