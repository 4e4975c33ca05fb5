package app

import (
	"context"
	"errors"
	"io"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/networker"
	"content-fetch/internal/parts"
	"content-fetch/internal/processor"
	"content-fetch/internal/processor/queue"
	"content-fetch/internal/sink"
	"content-fetch/internal/transport"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrServiceModeDisabled = errors.New("service mode needs KAFKA_ADDR")

type FetcherApp struct {
	logger   *zap.SugaredLogger
	cfg      *config.Config
	router   *networker.Router
	registry *parts.Registry
	sessions *transport.Manager

	processor     processor.Processor
	requestsQueue queue.Queue
	eventsQueue   queue.Queue

	redisClient    *redis.Client
	tracerProvider *trace.TracerProvider

	group *errgroup.Group
}

// StartApp runs service mode: requests are consumed from Kafka and events produced back until ctx ends.
func (app *FetcherApp) StartApp(ctx context.Context) error {
	if app.processor == nil {
		return ErrServiceModeDisabled
	}

	g, gctx := errgroup.WithContext(ctx)
	producerCtx := context.WithoutCancel(ctx)

	g.Go(func() error {
		app.requestsQueue.StartQueueConsumer(gctx)
		return nil
	})
	g.Go(func() error {
		app.eventsQueue.StartQueueProducer(producerCtx)
		return nil
	})
	g.Go(func() error {
		app.processor.StartRequestConsumer(gctx)
		return nil
	})

	app.group = g
	app.logger.Infow("Service mode started",
		"requests", app.cfg.Kafka.TopicRequests,
		"events", app.cfg.Kafka.TopicEvents,
	)

	return nil
}

// FetchOnce fetches a single locator and writes its data to out.
func (app *FetcherApp) FetchOnce(ctx context.Context, url, referer string, out io.Writer) sink.Status {
	req := &config.FetchRequest{
		URL:     url,
		Referer: referer,
		Buffer:  make([]byte, app.cfg.FetchBufferSize),
	}

	s := sink.NewWriterSink(app.logger, out, url)
	app.router.Go(ctx, req, s)

	return s.Wait()
}

func (app *FetcherApp) StopApp(ctx context.Context) error {
	var errs []error

	if app.processor != nil {
		errs = append(errs, app.processor.Stop(ctx))
		if app.group != nil {
			errs = append(errs, app.waitGroup(ctx))
		}
	}

	errs = append(errs, app.router.Stop(ctx))

	purged := app.registry.Len()
	app.registry.Shutdown()
	app.logger.Infow("Part registry released", "parts", purged)

	errs = append(errs, app.sessions.Shutdown(ctx))

	if app.redisClient != nil {
		errs = append(errs, app.redisClient.Close())
	}

	if app.tracerProvider != nil {
		errs = append(errs, app.tracerProvider.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

// waitGroup waits for the service goroutines. The events producer only returns once its queue is closed.
func (app *FetcherApp) waitGroup(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- app.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
