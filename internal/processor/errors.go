package processor

import "errors"

var (
	ErrNoRequests  = errors.New("no fetch requests received")
	ErrBadRequest  = errors.New("invalid fetch request")
	ErrQueueClosed = errors.New("requests queue closed")

	ErrProcessorStopped = errors.New("processor stopped")
)
