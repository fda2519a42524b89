// Package errors provides structured error types for calostack.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the library
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of a detector build:
//   - CONFIGURATION / UNKNOWN_LAYER_CODE: the description is unusable; the
//     build is aborted before any volume is placed
//   - GEOMETRY_OVERFLOW: the stacked layers do not fit the envelope
//   - BACKEND: the geometry backend rejected a solid, volume or placement
//   - DUPLICATE_IDENTIFIER: two placements received the same identifier
//
// # Usage
//
//	err := errors.Configuration("SplitCal", "widebar.num_x", "must be positive, got %d", n)
//	if errors.IsConfiguration(err) {
//	    // Reject the description
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBackend, origErr, "place %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Description errors
	ErrCodeConfiguration    Code = "CONFIGURATION"
	ErrCodeUnknownLayerCode Code = "UNKNOWN_LAYER_CODE"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Geometry errors
	ErrCodeGeometryOverflow    Code = "GEOMETRY_OVERFLOW"
	ErrCodeBackend             Code = "BACKEND"
	ErrCodeDuplicateIdentifier Code = "DUPLICATE_IDENTIFIER"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code      Code   // Machine-readable error code
	Message   string // Human-readable message
	Detector  string // Detector being built (optional)
	Attribute string // Offending description attribute (optional)
	Cause     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	switch {
	case e.Detector != "" && e.Attribute != "":
		msg = fmt.Sprintf("%s: %s: %s", e.Detector, e.Attribute, msg)
	case e.Detector != "":
		msg = fmt.Sprintf("%s: %s", e.Detector, msg)
	case e.Attribute != "":
		msg = fmt.Sprintf("%s: %s", e.Attribute, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Configuration creates a CONFIGURATION error naming the detector and the
// offending attribute.
func Configuration(detector, attribute, format string, args ...any) *Error {
	return &Error{
		Code:      ErrCodeConfiguration,
		Message:   fmt.Sprintf(format, args...),
		Detector:  detector,
		Attribute: attribute,
	}
}

// Overflow creates a GEOMETRY_OVERFLOW error for the named detector.
func Overflow(detector, format string, args ...any) *Error {
	return &Error{
		Code:     ErrCodeGeometryOverflow,
		Message:  fmt.Sprintf(format, args...),
		Detector: detector,
	}
}

// WithDetector returns a copy of err attributed to the given detector.
// Errors that are not *Error are wrapped as INTERNAL_ERROR. A nil err stays nil.
func WithDetector(err error, detector string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Code: ErrCodeInternal, Message: "build failed", Detector: detector, Cause: err}
	}
	cp := *e
	if cp.Detector == "" {
		cp.Detector = detector
	}
	return &cp
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfiguration reports whether err is a description error, including
// unknown layer codes.
func IsConfiguration(err error) bool {
	return Is(err, ErrCodeConfiguration) || Is(err, ErrCodeUnknownLayerCode)
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Detector != "" {
			return e.Detector + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}
