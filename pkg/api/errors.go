package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidArgument is returned before any request is made when a call is
// given unusable input.
var ErrInvalidArgument = errors.New("api: invalid argument")

// ErrorKind tags the cause of a TransportError.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
)

const maxBodySnippet = 512

// TransportError is the single failure type returned by Client operations.
type TransportError struct {
	Kind       ErrorKind
	Op         string
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api %s: %s %s: %s", e.Op, e.Method, e.Path, e.Kind)
	if e.Kind == KindStatus {
		fmt.Fprintf(&b, " %d", e.StatusCode)
		if e.Body != "" {
			fmt.Fprintf(&b, ": %s", e.Body)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsKind reports whether err wraps a *TransportError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}

// classify maps a transport failure to network or timeout.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxBodySnippet {
		body = body[:maxBodySnippet]
	}
	return strings.TrimSpace(string(body))
}
