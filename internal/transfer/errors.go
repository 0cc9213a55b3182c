package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
)

// Kind classifies a transfer failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidAddress
	KindInvalidAmount
	KindNode
	KindEstimation
	KindSigning
	KindBroadcast
	KindConfirmationTimeout
	KindReverted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAddress:
		return "invalid address"
	case KindInvalidAmount:
		return "invalid amount"
	case KindNode:
		return "node error"
	case KindEstimation:
		return "gas estimation failed"
	case KindSigning:
		return "signing failed"
	case KindBroadcast:
		return "broadcast failed"
	case KindConfirmationTimeout:
		return "confirmation timeout"
	case KindReverted:
		return "transaction reverted"
	default:
		return "unknown error"
	}
}

// Error is returned by every Submitter operation. Retryable is true when the
// failure came from the transport (connection refused, HTTP 429/5xx, call
// deadline) rather than from the node rejecting the request; the Submitter
// itself never retries.
type Error struct {
	Op        string
	Kind      Kind
	Retryable bool
	Err       error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidAddress      = &Error{Kind: KindInvalidAddress}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrNode                = &Error{Kind: KindNode}
	ErrEstimation          = &Error{Kind: KindEstimation}
	ErrSigning             = &Error{Kind: KindSigning}
	ErrBroadcast           = &Error{Kind: KindBroadcast}
	ErrConfirmationTimeout = &Error{Kind: KindConfirmationTimeout}
	ErrReverted            = &Error{Kind: KindReverted}
)

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return e.Op + ": " + e.Kind.String()
	case e.Op == "":
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels (no Op, no Err) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a transfer error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Retryable: transient(err), Err: err}
}

func errorf(op string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// transient reports whether err looks like a transport failure that may
// succeed if the same request is sent again.
func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
