package sink

import (
	"context"
	"sync"
	"time"

	"content-fetch/internal/domain/data"
	"content-fetch/internal/fetcherr"

	"go.uber.org/zap"
)

// QueueSink publishes every call as a data.Event on out. Chunks are copied by the JSON encoding.
type QueueSink struct {
	ctx      context.Context
	logger   *zap.SugaredLogger
	out      chan<- []byte
	workerID string
	url      string

	mu  sync.Mutex
	seq int
}

func NewQueueSink(ctx context.Context, logger *zap.SugaredLogger, out chan<- []byte, workerID, url string) *QueueSink {
	return &QueueSink{
		ctx:      ctx,
		logger:   logger,
		out:      out,
		workerID: workerID,
		url:      url,
	}
}

func (s *QueueSink) ContentType(contentType string) {
	s.publish(&data.Event{Kind: data.EventContentType, ContentType: contentType})
}

func (s *QueueSink) Data(chunk []byte) {
	s.publish(&data.Event{Kind: data.EventData, Data: chunk})
}

func (s *QueueSink) Progress(kind ProgressKind, subject string) {
	s.publish(&data.Event{Kind: data.EventProgress, Progress: kind.String(), Subject: subject})
}

func (s *QueueSink) Done(status Status) {
	event := &data.Event{Kind: data.EventDone, EOF: status.EOF, Terminate: status.Terminate}
	if status.Err != nil {
		event.Error = status.Err.Error()
		if kind := fetcherr.Kind(status.Err); kind != nil {
			event.ErrorKind = kind.Error()
		}
	}
	s.publish(event)
}

func (s *QueueSink) publish(event *data.Event) {
	s.mu.Lock()
	s.seq++
	event.Seq = s.seq
	s.mu.Unlock()

	event.WorkerID = s.workerID
	event.URL = s.url
	event.At = time.Now().UTC()

	b, err := event.MarshalBinary()
	if err != nil {
		s.logger.Warnw("Failed to marshal event", "kind", event.Kind, "err", err)
		return
	}

	select {
	case s.out <- b:
	case <-s.ctx.Done():
		s.logger.Warnw("Dropping event, sink closed", "kind", event.Kind, "url", s.url)
	}
}
