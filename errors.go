// SPDX-License-Identifier: BSD-2-Clause
// Copyright (C) 2024 Emir Aganovic

package nosip

import "fmt"

// ErrorCode is the numeric error taxonomy surfaced back to the host in
// error events.
type ErrorCode int

const (
	ErrUnknown        ErrorCode = 499
	ErrNoMessage      ErrorCode = 440
	ErrInvalidJSON    ErrorCode = 441
	ErrInvalidRequest ErrorCode = 442
	ErrMissingElement ErrorCode = 443
	ErrInvalidElement ErrorCode = 444
	ErrWrongState     ErrorCode = 445
	ErrMissingSDP     ErrorCode = 446
	ErrInvalidSDP     ErrorCode = 447
	ErrIOError        ErrorCode = 448
	ErrRecordingError ErrorCode = 449
	ErrTooStrict      ErrorCode = 450
)

// Error is returned by the dispatcher for request-layer failures. It carries
// the numeric code the host expects in the error event envelope, distinct
// from transport/internal errors which are plain wrapped errors.
type Error struct {
	Code   ErrorCode
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err, falling back to ErrUnknown when err is
// an opaque Go error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e
	}
	return &Error{Code: ErrUnknown, Reason: err.Error()}
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
