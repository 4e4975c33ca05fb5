package gopher

import (
	"errors"
	"fmt"

	"content-fetch/internal/fetcherr"
)

var (
	ErrBadAddress = fmt.Errorf("%w: invalid gopher address", fetcherr.ErrMalformed)
	ErrBadPort    = fmt.Errorf("%w: invalid gopher port", fetcherr.ErrMalformed)
	ErrNoSession  = errors.New("gopher: no transport session")

	ErrRecordTooLong = fmt.Errorf("%w: gopher directory record too long", fetcherr.ErrResourceExhausted)
)
