// Package processor runs fetch requests arriving on a queue and publishes their render events.
package processor

import (
	"context"

	"content-fetch/internal/domain/config"
)

type Processor interface {
	GetRequest(ctx context.Context) (*config.FetchRequest, error)
	StartRequestConsumer(ctx context.Context)
	Stop(ctx context.Context) error
}
