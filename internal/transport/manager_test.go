package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"content-fetch/internal/fetcherr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type switchOpener struct {
	up    atomic.Bool
	opens atomic.Int32
	stack Stack
}

func (o *switchOpener) Open(_ context.Context) (Stack, error) {
	o.opens.Add(1)
	if o.up.Load() {
		return o.stack, nil
	}
	return nil, ErrStackDown
}

type fakeSpawner struct {
	mu       sync.Mutex
	commands []string
	onSpawn  func() error
}

func (s *fakeSpawner) Spawn(_ context.Context, commandLine string) error {
	s.mu.Lock()
	s.commands = append(s.commands, commandLine)
	s.mu.Unlock()

	if s.onSpawn != nil {
		return s.onSpawn()
	}
	return nil
}

func (s *fakeSpawner) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func newTestManager(opener Opener, spawner Spawner, cfg ManagerConfig) *Manager {
	return NewManager(zap.NewNop().Sugar(), opener, spawner, nil, cfg)
}

func TestOpenSession_StackAlreadyUp(t *testing.T) {
	opener := &switchOpener{stack: NewDialerStack(time.Second)}
	opener.up.Store(true)
	spawner := &fakeSpawner{}

	m := newTestManager(opener, spawner, ManagerConfig{AutoStart: true, StartCommand: "start"})

	session, err := m.OpenSession(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, session.Secure)
	assert.Empty(t, spawner.Commands())
}

func TestOpenSession_AutoStartsOnce(t *testing.T) {
	opener := &switchOpener{stack: NewDialerStack(time.Second)}
	spawner := &fakeSpawner{}
	spawner.onSpawn = func() error {
		time.Sleep(20 * time.Millisecond)
		opener.up.Store(true)
		return nil
	}

	m := newTestManager(opener, spawner, ManagerConfig{AutoStart: true, StartCommand: "start"})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.OpenSession(context.Background(), false)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"start"}, spawner.Commands())
}

func TestOpenSession_Unavailable(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ManagerConfig
		spawnErr    error
		wantSpawned int
	}{
		{
			name: "auto start disabled",
			cfg:  ManagerConfig{AutoStart: false, StartCommand: "start"},
		},
		{
			name: "no start command",
			cfg:  ManagerConfig{AutoStart: true},
		},
		{
			name:        "helper fails",
			cfg:         ManagerConfig{AutoStart: true, StartCommand: "start"},
			spawnErr:    errors.New("exit status 1"),
			wantSpawned: 1,
		},
		{
			name:        "still down after start",
			cfg:         ManagerConfig{AutoStart: true, StartCommand: "start"},
			wantSpawned: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &switchOpener{}
			spawner := &fakeSpawner{onSpawn: func() error { return tt.spawnErr }}

			m := newTestManager(opener, spawner, tt.cfg)

			session, err := m.OpenSession(context.Background(), false)
			require.Error(t, err)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, fetcherr.ErrUnavailable)
			assert.Len(t, spawner.Commands(), tt.wantSpawned)
		})
	}
}

func TestOpenSession_CancelledWhileWaiting(t *testing.T) {
	opener := &switchOpener{}
	m := newTestManager(opener, &fakeSpawner{}, ManagerConfig{AutoStart: true, StartCommand: "start", StartWait: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.OpenSession(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcherr.ErrUnavailable)
	assert.ErrorIs(t, err, fetcherr.ErrCancelled)
}

func TestSecureContext_PerWorker(t *testing.T) {
	m := newTestManager(&switchOpener{}, &fakeSpawner{}, ManagerConfig{})

	a := NewSecureContext("worker-a", nil)
	m.SetSecureContext("worker-a", a)

	assert.Same(t, a, m.SecureContext("worker-a"))
	assert.Nil(t, m.SecureContext("worker-b"))

	replacement := NewSecureContext("worker-a", nil)
	m.SetSecureContext("worker-a", replacement)
	assert.Same(t, replacement, m.SecureContext("worker-a"))

	m.ClearSecureContext("worker-a")
	assert.Nil(t, m.SecureContext("worker-a"))
}

func TestClaimSecureContext(t *testing.T) {
	m := newTestManager(&switchOpener{}, &fakeSpawner{}, ManagerConfig{})

	sc, release := m.ClaimSecureContext("w1")
	require.NotNil(t, sc)
	assert.Same(t, sc, m.SecureContext("w1"))

	again, releaseAgain := m.ClaimSecureContext("w1")
	assert.Same(t, sc, again)
	releaseAgain()
	assert.Same(t, sc, m.SecureContext("w1"))

	release()
	assert.Nil(t, m.SecureContext("w1"))
}

func TestShutdown_RunsStopOnlyAfterLaunch(t *testing.T) {
	opener := &switchOpener{stack: NewDialerStack(time.Second)}
	spawner := &fakeSpawner{}
	spawner.onSpawn = func() error {
		opener.up.Store(true)
		return nil
	}

	cfg := ManagerConfig{AutoStart: true, StartCommand: "start", StopCommand: "stop"}

	idle := newTestManager(opener, spawner, cfg)
	require.NoError(t, idle.Shutdown(context.Background()))
	assert.Empty(t, spawner.Commands())

	m := newTestManager(opener, spawner, cfg)
	_, err := m.OpenSession(context.Background(), false)
	require.NoError(t, err)

	m.SetSecureContext("w1", NewSecureContext("w1", nil))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Equal(t, []string{"start", "stop"}, spawner.Commands())
	assert.Nil(t, m.SecureContext("w1"))
}

func TestSecureContext_Client(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hello")
	}))
	defer srv.Close()

	base := &tls.Config{
		RootCAs:    srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs,
		MinVersion: tls.VersionTLS12,
	}
	sc := NewSecureContext("w1", base)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := NewDialerStack(time.Second).DialContext(ctx, "tcp", srv.Listener.Addr().String())
	require.NoError(t, err)

	conn, err := sc.Client(ctx, raw, "127.0.0.1")
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "GET / HTTP/1.0\r\nHost: 127.0.0.1\r\n\r\n")
	require.NoError(t, err)

	body, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")

	raw, err = net.Dial("tcp", srv.Listener.Addr().String())
	require.NoError(t, err)
	_, err = sc.Client(ctx, raw, "wrong.invalid")
	assert.Error(t, err)
}

func TestLocalLaunchLock(t *testing.T) {
	lock := NewLocalLaunchLock()

	unlock, err := lock.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = lock.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := lock.Lock(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestShellSpawner(t *testing.T) {
	spawner := NewShellSpawner(zap.NewNop().Sugar())

	require.NoError(t, spawner.Spawn(context.Background(), "true"))
	assert.Error(t, spawner.Spawn(context.Background(), "exit 3"))
}
