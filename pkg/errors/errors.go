// Package errors provides structured error handling for the kvlink SDK.
// It defines error types carrying a code, category and severity so that the
// connection manager and middleware can decide programmatically whether a
// failure is transient (drives the reconnect/retry machinery) or permanent.
package errors

import (
	"fmt"
	"time"
)

// Category classifies an error for handling decisions.
type Category string

const (
	CategoryConnection Category = "connection"
	CategoryHandshake  Category = "handshake"
	CategoryProtocol   Category = "protocol"
	CategoryCommand    Category = "command"
	CategoryTimeout    Category = "timeout"
	CategoryCancelled  Category = "cancelled"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// kvlink error codes. Connection-category codes are the ones the reconnect
// loop and the reliability middleware treat as transient.
const (
	// Connection errors (1000-1099)
	CodeConnectionFailed  int = 1000 // dial failed (refused, unreachable, bad socket path)
	CodeConnectionLost    int = 1001 // transport dropped while bound
	CodeConnectionTimeout int = 1002 // dial or I/O deadline exceeded
	CodeNotConnected      int = 1003 // command issued with no bound transport

	// Handshake errors (1100-1199)
	CodeAuthRejected   int = 1100 // server rejected AUTH
	CodeSelectRejected int = 1101 // server rejected SELECT

	// Command errors (1200-1299)
	CodeUnknownCommand int = 1200 // name outside the recognized command set
	CodeCommandFailed  int = 1201 // server returned an error reply
	CodeRetryExhausted int = 1202 // reliability middleware gave up

	// Protocol errors (1300-1399)
	CodeProtocolError int = 1300 // malformed RESP data on the wire
	CodeDecodeError   int = 1301 // value decoder failure

	// Operation errors (1400-1499)
	CodeOperationTimeout   int = 1400
	CodeOperationCancelled int = 1401
)

// Context carries information about where an error occurred.
type Context struct {
	Command   string    `json:"command,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// KVError is the interface implemented by all kvlink errors.
type KVError interface {
	error

	// Code returns the kvlink error code.
	Code() int

	// Message returns the human-readable error message.
	Message() string

	// Category returns the error category for classification.
	Category() Category

	// Severity returns the error severity level.
	Severity() Severity

	// Context returns the error context, or nil.
	Context() *Context

	// WithContext returns a copy of the error with the provided context.
	WithContext(ctx *Context) KVError

	// WithDetail returns a copy of the error with additional detail appended.
	WithDetail(detail string) KVError

	// Unwrap returns the underlying cause for error chain traversal.
	Unwrap() error
}

type baseError struct {
	code     int
	message  string
	detail   string
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Context() *Context  { return e.context }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithContext(ctx *Context) KVError {
	newErr := *e
	newErr.context = ctx
	return &newErr
}

func (e *baseError) WithDetail(detail string) KVError {
	newErr := *e
	if newErr.detail != "" {
		newErr.detail = fmt.Sprintf("%s; %s", newErr.detail, detail)
	} else {
		newErr.detail = detail
	}
	return &newErr
}

// NewError creates a new KVError with the specified parameters.
func NewError(code int, message string, category Category, severity Severity) KVError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// NewErrorf creates a new KVError with a formatted message.
func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) KVError {
	return &baseError{
		code:     code,
		message:  fmt.Sprintf(format, args...),
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// WrapError wraps an existing error as a KVError, preserving it as the cause.
func WrapError(err error, code int, message string, category Category, severity Severity) KVError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  &Context{Timestamp: time.Now()},
	}
}

// AsKVError extracts a KVError from any error.
func AsKVError(err error) (KVError, bool) {
	if err == nil {
		return nil, false
	}
	kvErr, ok := err.(KVError)
	return kvErr, ok
}

// IsCategory reports whether err is a KVError of the given category.
func IsCategory(err error, category Category) bool {
	if kvErr, ok := AsKVError(err); ok {
		return kvErr.Category() == category
	}
	return false
}

// IsCode reports whether err is a KVError with the given code.
func IsCode(err error, code int) bool {
	if kvErr, ok := AsKVError(err); ok {
		return kvErr.Code() == code
	}
	return false
}

// IsRetryable reports whether err represents a transient failure that the
// reliability middleware may retry. Connection-level failures are retryable;
// handshake, command and protocol failures are not.
func IsRetryable(err error) bool {
	kvErr, ok := AsKVError(err)
	if !ok {
		return false
	}
	switch kvErr.Code() {
	case CodeConnectionFailed, CodeConnectionLost, CodeConnectionTimeout, CodeNotConnected:
		return true
	}
	return false
}
