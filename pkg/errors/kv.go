package errors

import (
	"fmt"
	"time"
)

// Constructors for the error conditions kvlink raises frequently. Using these
// keeps codes, categories and severities consistent across packages.

// NewConnectionFailed indicates a dial attempt failed.
func NewConnectionFailed(cause error, endpoint string) KVError {
	return WrapError(cause, CodeConnectionFailed, "connection failed",
		CategoryConnection, SeverityError).
		WithContext(&Context{Endpoint: endpoint, Operation: "dial", Timestamp: time.Now()})
}

// NewConnectionLost indicates a bound transport dropped.
func NewConnectionLost(cause error, endpoint string) KVError {
	return WrapError(cause, CodeConnectionLost, "connection lost",
		CategoryConnection, SeverityWarning).
		WithContext(&Context{Endpoint: endpoint, Timestamp: time.Now()})
}

// NewNotConnected indicates a command was issued with no bound transport.
func NewNotConnected(command string) KVError {
	return NewError(CodeNotConnected, "not connected",
		CategoryConnection, SeverityWarning).
		WithContext(&Context{Command: command, Timestamp: time.Now()})
}

// NewUnknownCommand indicates a name outside the recognized command set.
func NewUnknownCommand(name string) KVError {
	return NewErrorf(CodeUnknownCommand, CategoryCommand, SeverityError,
		"unknown command %q", name).
		WithContext(&Context{Command: name, Timestamp: time.Now()})
}

// NewCommandFailed wraps a server error reply for the given command.
func NewCommandFailed(command, serverMessage string) KVError {
	return NewError(CodeCommandFailed, serverMessage,
		CategoryCommand, SeverityError).
		WithContext(&Context{Command: command, Timestamp: time.Now()})
}

// NewAuthRejected indicates the server refused the AUTH handshake.
func NewAuthRejected(serverMessage string) KVError {
	return NewError(CodeAuthRejected, fmt.Sprintf("authentication rejected: %s", serverMessage),
		CategoryHandshake, SeverityCritical).
		WithContext(&Context{Operation: "auth", Timestamp: time.Now()})
}

// NewSelectRejected indicates the server refused the SELECT handshake.
func NewSelectRejected(db int, serverMessage string) KVError {
	return NewErrorf(CodeSelectRejected, CategoryHandshake, SeverityCritical,
		"select db %d rejected: %s", db, serverMessage).
		WithContext(&Context{Operation: "select", Timestamp: time.Now()})
}

// NewProtocolError indicates malformed data on the wire.
func NewProtocolError(cause error, detail string) KVError {
	return WrapError(cause, CodeProtocolError, "protocol error",
		CategoryProtocol, SeverityError).WithDetail(detail)
}
