package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

const sessionCacheSize = 32

// SecureContext is the TLS state of one worker. Its session cache lets repeated connections of the same
// worker resume sessions.
type SecureContext struct {
	WorkerID string

	base     *tls.Config
	sessions tls.ClientSessionCache
}

func NewSecureContext(workerID string, base *tls.Config) *SecureContext {
	if base == nil {
		base = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &SecureContext{
		WorkerID: workerID,
		base:     base,
		sessions: tls.NewLRUClientSessionCache(sessionCacheSize),
	}
}

func (c *SecureContext) Config(serverName string) *tls.Config {
	cfg := c.base.Clone()
	cfg.ServerName = serverName
	cfg.ClientSessionCache = c.sessions
	return cfg
}

// Client runs a TLS handshake over conn. conn is closed when the handshake fails.
func (c *SecureContext) Client(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
	tlsConn := tls.Client(conn, c.Config(serverName))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", serverName, err)
	}
	return tlsConn, nil
}
