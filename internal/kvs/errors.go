package kvs

import (
	"errors"
	"fmt"

	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

// Failure kinds. Match with errors.Is.
var (
	ErrChannelNotFound      = errors.New("channel not found")
	ErrIncompleteEndpoints  = errors.New("incomplete signaling endpoints")
	ErrMissingCredentials   = sigv4.ErrMissingCredentials
	ErrInvalidEndpoint      = sigv4.ErrInvalidEndpoint
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrInitializationFailed = errors.New("initialization failed")
	ErrInvalidInput         = errors.New("invalid input")
)

// Error is a failure of one operation, tagged with its kind.
type Error struct {
	Kind error
	Op   string // e.g. "describe_channel", "sign"
	Err  error  // Underlying cause, may be nil
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind; the cause chain is
// checked by errors.Is through Unwrap.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind
}
