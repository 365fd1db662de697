package chatclient

import (
	"errors"
	"fmt"
)

// TransportError reports a failed connect, read or write on the router
// connection. It ends the client; nothing is retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport_fault: %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportFault reports whether err came from the router connection
func IsTransportFault(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
