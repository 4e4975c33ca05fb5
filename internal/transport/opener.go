package transport

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DialerStack dials through a net.Dialer.
type DialerStack struct {
	dialer net.Dialer
}

func NewDialerStack(timeout time.Duration) *DialerStack {
	return &DialerStack{dialer: net.Dialer{Timeout: timeout}}
}

func (s *DialerStack) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return s.dialer.DialContext(ctx, network, address)
}

// InterfaceOpener reports the stack as up when a non-loopback interface is up.
type InterfaceOpener struct {
	stack         Stack
	allowLoopback bool
}

func NewInterfaceOpener(stack Stack, allowLoopback bool) *InterfaceOpener {
	return &InterfaceOpener{stack: stack, allowLoopback: allowLoopback}
}

func (o *InterfaceOpener) Open(_ context.Context) (Stack, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStackDown, err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 && !o.allowLoopback {
			continue
		}
		return o.stack, nil
	}

	return nil, ErrStackDown
}

// StaticOpener always returns the same stack.
type StaticOpener struct {
	stack Stack
}

func NewStaticOpener(stack Stack) *StaticOpener {
	return &StaticOpener{stack: stack}
}

func (o *StaticOpener) Open(_ context.Context) (Stack, error) {
	return o.stack, nil
}

// ShellSpawner runs command lines through /bin/sh and waits for them to exit.
type ShellSpawner struct {
	logger *zap.SugaredLogger
}

func NewShellSpawner(logger *zap.SugaredLogger) *ShellSpawner {
	return &ShellSpawner{logger: logger}
}

func (s *ShellSpawner) Spawn(ctx context.Context, commandLine string) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", commandLine)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		s.logger.Debugw("Helper output", "cmd", commandLine, "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("run %q: %w", commandLine, err)
	}
	return nil
}
