package fetcherr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformed         = errors.New("malformed")
	ErrUnavailable       = errors.New("unavailable")
	ErrCancelled         = errors.New("cancelled")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// SchemeError is the single failure report a worker hands to the render sink.
type SchemeError struct {
	Scheme string
	URL    string
	Err    error
}

func New(scheme, url string, err error) *SchemeError {
	return &SchemeError{Scheme: scheme, URL: url, Err: FromContext(err)}
}

func (e *SchemeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Scheme, e.URL, e.Err)
}

func (e *SchemeError) Unwrap() error {
	return e.Err
}

// FromContext rewrites context cancellation into ErrCancelled, keeping the original in the chain.
func FromContext(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrCancelled) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return err
}

// Kind returns the taxonomy sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrCancelled, ErrNotFound, ErrMalformed, ErrUnavailable, ErrResourceExhausted} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
