// Package kzerr provides structured kernel errors with context, adapted
// from the teacher's device-error taxonomy onto kernel resource and
// protocol-misuse errors (spec §7).
package kzerr

import (
	"errors"
	"fmt"
)

// Code represents a high-level error category.
type Code string

const (
	CodeNoFreeTCB        Code = "no free thread control block"
	CodeHeapExhausted    Code = "kernel heap exhausted"
	CodeBoxBusy          Code = "message box already has a parked receiver"
	CodeInvalidParameter Code = "invalid parameter"
	CodeNotFound         Code = "not found"
	CodeFatal            Code = "fatal kernel error"
)

// Error is a structured kernel error with context and category.
type Error struct {
	Op     string // operation that failed, e.g. "run", "send", "recv"
	Thread uint32 // thread handle (0 if not applicable)
	Box    int    // message box ID (-1 if not applicable)
	Code   Code   // high-level error category
	Msg    string // human-readable message
	Inner  error  // wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Thread != 0 {
		parts = append(parts, fmt.Sprintf("thread=%d", e.Thread))
	}
	if e.Box >= 0 {
		parts = append(parts, fmt.Sprintf("box=%d", e.Box))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("kozos: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("kozos: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by category.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// New creates a structured kernel error.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Box: -1, Code: code, Msg: msg}
}

// NewThreadError creates a thread-scoped error.
func NewThreadError(op string, thread uint32, code Code, msg string) *Error {
	return &Error{Op: op, Thread: thread, Box: -1, Code: code, Msg: msg}
}

// NewBoxError creates a message-box-scoped error.
func NewBoxError(op string, box int, code Code, msg string) *Error {
	return &Error{Op: op, Box: box, Code: code, Msg: msg}
}

// Wrap wraps an existing error with kernel context.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ke, ok := inner.(*Error); ok {
		return &Error{Op: op, Thread: ke.Thread, Box: ke.Box, Code: code, Msg: ke.Msg, Inner: ke.Inner}
	}
	return &Error{Op: op, Box: -1, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err matches the given category.
func IsCode(err error, code Code) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Code == code
	}
	return false
}

// IsFatal reports whether err represents a system_down condition.
func IsFatal(err error) bool {
	return IsCode(err, CodeFatal)
}
