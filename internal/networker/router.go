package networker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/sink"
	"content-fetch/internal/utils"

	"go.uber.org/zap"
)

type Router struct {
	Logger *zap.SugaredLogger

	mu      sync.RWMutex
	workers map[string]Worker

	wg sync.WaitGroup
}

func NewRouter(logger *zap.SugaredLogger) *Router {
	return &Router{
		Logger:  logger,
		workers: make(map[string]Worker),
	}
}

func (r *Router) Handle(scheme string, w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workers[strings.ToLower(scheme)] = w
}

func (r *Router) worker(scheme string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[scheme]
	return w, ok
}

// Fetch runs the request on the calling goroutine and reports exactly one terminal status to s.
func (r *Router) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) sink.Status {
	if req.WorkerID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			r.Logger.Warnw("Failed to generate worker id", "err", err)
		}
		req.WorkerID = id
	}

	err := r.run(ctx, req, s)
	if err != nil {
		var schemeErr *fetcherr.SchemeError
		if !errors.As(err, &schemeErr) {
			err = fetcherr.New(req.Scheme(), req.URL, err)
		}
		r.Logger.Debugw("Fetch failed", "url", req.URL, "worker", req.WorkerID, "err", err)
	}

	status := sink.Status{Err: err, EOF: err == nil, Terminate: true}
	s.Done(status)

	return status
}

// Go runs the request on its own goroutine. Stop waits for all of them.
func (r *Router) Go(ctx context.Context, req *config.FetchRequest, s sink.Sink) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Fetch(ctx, req, s)
	}()
}

func (r *Router) run(ctx context.Context, req *config.FetchRequest, s sink.Sink) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Errorw("Recovered from panic in worker", "url", req.URL, "worker", req.WorkerID, "panic", rec)
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, rec)
		}
	}()

	scheme := req.Scheme()
	w, ok := r.worker(scheme)
	if !ok {
		return fetcherr.New(scheme, req.URL, ErrUnknownScheme)
	}

	return w.Fetch(ctx, req, s)
}

func (r *Router) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
