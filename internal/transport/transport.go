// Package transport hands out network sessions to fetch workers, bringing the network stack up on demand,
// and tracks per-worker secure contexts.
package transport

import (
	"context"
	"net"
)

// Stack is a usable network stack.
type Stack interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Opener returns the active stack, or an error wrapping ErrStackDown when none is available.
type Opener interface {
	Open(ctx context.Context) (Stack, error)
}

// Spawner runs an external helper command line to completion.
type Spawner interface {
	Spawn(ctx context.Context, commandLine string) error
}

// LaunchLock serialises stack start-up attempts.
type LaunchLock interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Session is a stack handed to one worker.
type Session struct {
	Stack
	Secure bool
}
