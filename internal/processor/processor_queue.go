package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/networker"
	"content-fetch/internal/processor/queue"
	"content-fetch/internal/sink"
	"content-fetch/internal/utils"

	"go.uber.org/zap"
)

type QueueProcessor struct {
	logger        *zap.SugaredLogger
	requestsQueue queue.Queue
	eventsQueue   queue.Queue
	router        networker.Networker
	bufferSize    int

	mu        sync.Mutex
	stopped   bool
	stopping  chan struct{}
	consumers sync.WaitGroup
}

func NewQueueProcessor(logger *zap.SugaredLogger, requestsQueue, eventsQueue queue.Queue, router networker.Networker, bufferSize int) *QueueProcessor {
	if bufferSize <= 0 {
		bufferSize = config.DefaultBufferSize
	}

	return &QueueProcessor{
		logger:        logger,
		requestsQueue: requestsQueue,
		eventsQueue:   eventsQueue,
		router:        router,
		bufferSize:    bufferSize,
		stopping:      make(chan struct{}),
	}
}

func (p *QueueProcessor) GetRequest(ctx context.Context) (*config.FetchRequest, error) {
	select {
	case reqBytes, ok := <-p.requestsQueue.GetConsumerChan():
		if !ok {
			return nil, ErrQueueClosed
		}

		req := new(config.FetchRequest)
		if err := json.Unmarshal(reqBytes, req); err != nil {
			p.logger.Warnw("Failed to unmarshal fetch request", "record", string(reqBytes), "err", err)
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		if req.URL == "" {
			return nil, fmt.Errorf("%w: empty url", ErrBadRequest)
		}

		return req, nil
	case <-time.After(queue.SingleRequestTimeout):
		return nil, ErrNoRequests
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopping:
		return nil, ErrProcessorStopped
	}
}

// StartRequestConsumer dispatches every request on its own worker until ctx ends or the queue closes.
// Events are published with eventsCtx so in-flight workers can still report while shutting down.
func (p *QueueProcessor) StartRequestConsumer(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Infow("Request consumer not started", "reason", ErrProcessorStopped)
		return
	}
	p.consumers.Add(1)
	p.mu.Unlock()
	defer p.consumers.Done()

	eventsCtx := context.WithoutCancel(ctx)

	for {
		req, err := p.GetRequest(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoRequests), errors.Is(err, ErrBadRequest):
			continue
		default:
			p.logger.Infow("Request consumer stopped", "reason", err)
			return
		}

		if req.WorkerID == "" {
			if req.WorkerID, err = utils.GenerateID(); err != nil {
				p.logger.Warnw("Failed to generate worker id", "err", err)
			}
		}
		if len(req.Buffer) == 0 {
			req.Buffer = make([]byte, p.bufferSize)
		}

		s := sink.NewQueueSink(eventsCtx, p.logger, p.eventsQueue.GetProducerChan(), req.WorkerID, req.URL)
		p.router.Go(ctx, req, s)
	}
}

// Stop ends the request consumers, waits for in-flight workers and then closes both queues.
// The events queue is closed only once every dispatched worker has reported Done.
func (p *QueueProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopping)
	}
	p.mu.Unlock()

	consumersDone := make(chan struct{})
	go func() {
		p.consumers.Wait()
		close(consumersDone)
	}()

	select {
	case <-consumersDone:
	case <-ctx.Done():
		p.logger.Warnw("Request consumer did not stop", "err", ctx.Err())
		return ctx.Err()
	}

	requestsErr := p.requestsQueue.CloseQueue(ctx)

	routerErr := p.router.Stop(ctx)
	if routerErr != nil {
		p.logger.Warnw("In-flight fetches did not finish, events queue left open", "err", routerErr)
		return errors.Join(routerErr, requestsErr)
	}

	return errors.Join(p.eventsQueue.CloseQueue(ctx), requestsErr)
}
