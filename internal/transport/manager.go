package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"content-fetch/internal/fetcherr"

	"go.uber.org/zap"
)

type ManagerConfig struct {
	AutoStart    bool
	StartCommand string
	StopCommand  string
	// StartWait is how long to give the stack after the start helper returns before the retry.
	StartWait time.Duration
	// TLS is the base client configuration cloned into every secure context.
	TLS *tls.Config
}

type Manager struct {
	logger  *zap.SugaredLogger
	opener  Opener
	spawner Spawner
	lock    LaunchLock
	cfg     ManagerConfig

	launched atomic.Bool

	secureMu sync.Mutex
	secure   map[string]*SecureContext
}

func NewManager(logger *zap.SugaredLogger, opener Opener, spawner Spawner, lock LaunchLock, cfg ManagerConfig) *Manager {
	if lock == nil {
		lock = NewLocalLaunchLock()
	}

	return &Manager{
		logger:  logger,
		opener:  opener,
		spawner: spawner,
		lock:    lock,
		cfg:     cfg,
		secure:  make(map[string]*SecureContext),
	}
}

// OpenSession returns a session on the active stack, starting the stack first when it is down and
// auto-start is enabled. Only one caller runs the start helper; the others wait for it and reuse the result.
func (m *Manager) OpenSession(ctx context.Context, wantsSecure bool) (*Session, error) {
	stack, err := m.opener.Open(ctx)
	if err == nil {
		return &Session{Stack: stack, Secure: wantsSecure}, nil
	}

	if !m.cfg.AutoStart || m.cfg.StartCommand == "" {
		return nil, fmt.Errorf("%w: %w", fetcherr.ErrUnavailable, err)
	}

	stack, err = m.startStack(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fetcherr.ErrUnavailable, fetcherr.FromContext(err))
	}

	return &Session{Stack: stack, Secure: wantsSecure}, nil
}

func (m *Manager) startStack(ctx context.Context) (Stack, error) {
	unlock, err := m.lock.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if stack, err := m.opener.Open(ctx); err == nil {
		return stack, nil
	}

	m.logger.Infow("Starting network stack", "cmd", m.cfg.StartCommand)

	if err := m.spawner.Spawn(ctx, m.cfg.StartCommand); err != nil {
		m.logger.Warnw("Network stack start helper failed", "cmd", m.cfg.StartCommand, "err", err)
		return nil, fmt.Errorf("start helper: %w", err)
	}
	m.launched.Store(true)

	if m.cfg.StartWait > 0 {
		timer := time.NewTimer(m.cfg.StartWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stack, err := m.opener.Open(ctx)
	if err != nil {
		m.logger.Warnw("Network stack still down after start", "err", err)
		return nil, err
	}

	m.logger.Infow("Network stack started")
	return stack, nil
}

// SecureContext returns the context claimed by workerID, or nil.
func (m *Manager) SecureContext(workerID string) *SecureContext {
	m.secureMu.Lock()
	defer m.secureMu.Unlock()

	return m.secure[workerID]
}

// SetSecureContext associates sc with workerID, replacing any previous context of that worker.
func (m *Manager) SetSecureContext(workerID string, sc *SecureContext) {
	m.secureMu.Lock()
	defer m.secureMu.Unlock()

	m.secure[workerID] = sc
}

func (m *Manager) ClearSecureContext(workerID string) {
	m.secureMu.Lock()
	defer m.secureMu.Unlock()

	delete(m.secure, workerID)
}

// ClaimSecureContext returns the worker's context, creating and registering one when it has none.
// The returned release func clears it again if it was created here.
func (m *Manager) ClaimSecureContext(workerID string) (*SecureContext, func()) {
	if sc := m.SecureContext(workerID); sc != nil {
		return sc, func() {}
	}

	sc := NewSecureContext(workerID, m.cfg.TLS)
	m.SetSecureContext(workerID, sc)

	return sc, func() { m.ClearSecureContext(workerID) }
}

// Shutdown drops all secure contexts and runs the stop helper if this process started the stack.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.secureMu.Lock()
	clear(m.secure)
	m.secureMu.Unlock()

	if !m.launched.Load() || m.cfg.StopCommand == "" {
		return nil
	}

	m.logger.Infow("Stopping network stack", "cmd", m.cfg.StopCommand)
	if err := m.spawner.Spawn(ctx, m.cfg.StopCommand); err != nil {
		return fmt.Errorf("stop helper: %w", err)
	}

	m.launched.Store(false)
	return nil
}
