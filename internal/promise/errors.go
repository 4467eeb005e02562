package promise

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrScriptLoadTimeout = errors.New("timed out waiting for widget script")
	ErrAlreadyActive     = errors.New("poller already active")
	ErrPanelClosed       = errors.New("panel closed")
)

// InvocationError wraps a failure raised by the widget entry point, either a
// returned error or a recovered panic.
type InvocationError struct {
	Command string
	Err     error
}

func (e *InvocationError) Error() string { return e.Err.Error() }
func (e *InvocationError) Unwrap() error { return e.Err }
func (e *InvocationError) Kind() string  { return "invocation_error" }

// NetworkError means no usable response was obtained.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }
func (e *NetworkError) Kind() string  { return "network_failure" }

// RemoteError is a response with a non-2xx status. The body is still kept.
type RemoteError struct {
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned status %d", e.StatusCode)
}
func (e *RemoteError) Kind() string { return "remote_error" }

type kinder interface {
	Kind() string
}

// Kind classifies err for status reporting and HTTP mapping.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, ErrScriptLoadTimeout):
		return "script_timeout"
	case errors.Is(err, ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, ErrPanelClosed):
		return "panel_closed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
