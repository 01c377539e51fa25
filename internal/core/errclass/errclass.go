// Package errclass normalizes raw fetch failures into a fixed taxonomy
// with a retry-eligibility flag.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"
)

// Kind is the class of a failed fetch.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindServerError
	KindNetwork
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindServerError:
		return "server_error"
	case KindNetwork:
		return "network_error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrOffline is returned by the connectivity gate when no attempt is made.
var ErrOffline = errors.New("device is offline")

// StatusError is a non-2xx reply from an upstream provider.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Error is a classified failure.
type Error struct {
	Kind       Kind
	Retryable  bool
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Offline builds the NetworkError used when the connectivity gate skips the
// network entirely.
func Offline() *Error {
	return &Error{
		Kind:      KindNetwork,
		Retryable: true,
		Message:   ErrOffline.Error(),
		Err:       ErrOffline,
	}
}

// As returns err as a classified error, classifying it as Unknown when it
// has not been through a Classifier.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: KindUnknown, Retryable: true, Message: err.Error(), Err: err}
}

// Classifier maps raw errors to classified errors.
type Classifier struct {
	attemptTimeout time.Duration
}

// NewClassifier creates a classifier. attemptTimeout is the per-attempt
// budget; an attempt that ran at least that long is a Timeout.
func NewClassifier(attemptTimeout time.Duration) *Classifier {
	return &Classifier{attemptTimeout: attemptTimeout}
}

// Classify applies the rules in priority order: 404, 5xx, unreachable
// network, timeout, unknown. elapsed is how long the failed attempt ran.
func (c *Classifier) Classify(err error, elapsed time.Duration) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	out := &Error{Message: err.Error(), Err: err}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode
	}

	switch {
	case out.StatusCode == http.StatusNotFound:
		out.Kind = KindNotFound
	case out.StatusCode >= http.StatusInternalServerError:
		out.Kind = KindServerError
		out.Retryable = true
	case isUnreachable(err):
		out.Kind = KindNetwork
		out.Retryable = true
	case isTimeout(err) || (c.attemptTimeout > 0 && elapsed >= c.attemptTimeout):
		out.Kind = KindTimeout
		out.Retryable = true
	default:
		// Unclassified failures still get a retry budget.
		out.Kind = KindUnknown
		out.Retryable = true
	}

	return out
}

func isUnreachable(err error) bool {
	if errors.Is(err, ErrOffline) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}

	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
