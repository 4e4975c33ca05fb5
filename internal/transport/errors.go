package transport

import "errors"

var (
	ErrStackDown  = errors.New("transport: network stack is not running")
	ErrLaunchBusy = errors.New("transport: stack launch lock not acquired")
)
