package app

import (
	"context"
	"time"
)

const (
	DialTimeout = 30 * time.Second
	DNSTimeout  = 5 * time.Second
	serviceName = "content-fetch"
)

type App interface {
	StartApp(ctx context.Context) error
	StopApp(ctx context.Context) error
}
