package chatserver

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// ErrorCode classifies router failures.
type ErrorCode int

const (
	// ErrorTransport is a read, write or connect failure on one connection.
	// It closes only the affected session.
	ErrorTransport ErrorCode = iota
	// ErrorProtocol is a recoverable client mistake such as a blank nickname.
	ErrorProtocol
	// ErrorListener means the router cannot bind or accept. It is fatal.
	ErrorListener
)

// String returns the string representation of an ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case ErrorTransport:
		return "transport_fault"
	case ErrorProtocol:
		return "protocol_violation"
	case ErrorListener:
		return "listener_fault"
	default:
		return fmt.Sprintf("unknown_code_%d", int(c))
	}
}

// ChatError is a classified error with an optional cause.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is matches any *ChatError with the same code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

func wrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Wrapped: err}
}

// Sentinels for errors.Is checks against a code.
var (
	ErrTransportFault    = newError(ErrorTransport, "")
	ErrProtocolViolation = newError(ErrorProtocol, "")
	ErrListenerFault     = newError(ErrorListener, "")
)

// IsTransportFault reports whether err is a transport failure.
func IsTransportFault(err error) bool {
	return errors.Is(err, ErrTransportFault)
}

// IsListenerFault reports whether err is a fatal listener failure.
func IsListenerFault(err error) bool {
	return errors.Is(err, ErrListenerFault)
}

// isExpectedDisconnect reports read errors that mean "the peer went away"
// rather than a fault worth logging loudly.
func isExpectedDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
