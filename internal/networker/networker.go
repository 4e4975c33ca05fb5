// Package networker dispatches fetch requests to per-scheme workers.
package networker

import (
	"context"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/sink"
)

// Worker fetches one request and reports through s. Workers never call s.Done; the Router does,
// using the returned error.
type Worker interface {
	Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error
}

type WorkerFunc func(ctx context.Context, req *config.FetchRequest, s sink.Sink) error

func (f WorkerFunc) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error {
	return f(ctx, req, s)
}

type Networker interface {
	Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) sink.Status
	Go(ctx context.Context, req *config.FetchRequest, s sink.Sink)
	Stop(ctx context.Context) error
}
