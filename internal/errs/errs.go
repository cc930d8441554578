// Package errs holds the error types shared by the relay client and the
// protocol packages. Callers match them with errors.As.
package errs

import "fmt"

// FormatError reports malformed caller input (amount text, hex, addresses).
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format: %s: %q", e.Reason, e.Input)
}

// TransportError reports a failed round trip to the relay or save server.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-zero response code returned by the service.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote: code %d: %s", e.Code, e.Message)
}

// ProtocolError is a locally detected protocol violation: bad identifier
// length, out-of-range integer, or an illegal lifecycle transition.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %s", e.Op, e.Reason)
}

// Format is shorthand for &FormatError{...}.
func Format(input, reason string) error {
	return &FormatError{Input: input, Reason: reason}
}

// Protocol is shorthand for &ProtocolError{...}.
func Protocol(op, format string, args ...any) error {
	return &ProtocolError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
