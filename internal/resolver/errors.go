package resolver

import "errors"

var (
	ErrEmptyName = errors.New("resolver: empty host name")
	ErrNoAddress = errors.New("resolver: no address records")
)
