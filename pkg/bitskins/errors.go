package bitskins

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every error returned by Client matches exactly one
// of the first four.
var (
	ErrUsage     = errors.New("bitskins: invalid request")
	ErrTransport = errors.New("bitskins: transport failure")
	ErrProtocol  = errors.New("bitskins: malformed response")
	ErrRemote    = errors.New("bitskins: remote api failure")

	// ErrLockContention matches remote failures caused by a concurrent
	// buy, sell or withdrawal on the same account. Safe to retry with backoff.
	ErrLockContention = errors.New("bitskins: failed to acquire lock")
)

// UsageError reports invalid, missing or contradictory parameters. It is
// returned before any network access.
type UsageError struct {
	Op     string
	Param  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("bitskins %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("bitskins %s: %s: %s", e.Op, e.Param, e.Reason)
}

func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// TransportError wraps a failed HTTP round trip, including context
// cancellation and deadline expiry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bitskins %s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError reports a body that is not JSON or lacks the status field.
type ProtocolError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bitskins %s: unexpected response (http %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// RemoteAPIError is a "fail" envelope. Error returns the remote message as is.
type RemoteAPIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteAPIError) Error() string { return e.Message }

// LockContention reports whether the service rejected the call because another
// mutating call on the account holds its lock.
func (e *RemoteAPIError) LockContention() bool {
	return strings.Contains(strings.ToLower(e.Message), "acquire lock")
}

func (e *RemoteAPIError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrLockContention:
		return e.LockContention()
	}
	return false
}

func usageErr(op, param, format string, args ...interface{}) error {
	return &UsageError{Op: op, Param: param, Reason: fmt.Sprintf(format, args...)}
}
