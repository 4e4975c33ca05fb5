package schemes

import (
	"context"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/parts"
	"content-fetch/internal/sink"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DataWorker serves inline-data locators. Decoded payloads are registered scope-less under the full
// locator so repeated references are served from the registry.
type DataWorker struct {
	logger   *zap.SugaredLogger
	registry *parts.Registry
}

func NewDataWorker(logger *zap.SugaredLogger, registry *parts.Registry) *DataWorker {
	return &DataWorker{
		logger:   logger,
		registry: registry,
	}
}

func (w *DataWorker) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error {
	_, span := tracer.Start(ctx, "data.fetch")
	defer span.End()

	locator := req.URL
	if !parts.IsDataLocator(locator) {
		locator = parts.DataPrefix + locator
	}
	span.SetAttributes(attribute.Int("data.locator_length", len(locator)))

	part, err := w.registry.Find("", locator)
	if err != nil {
		decoded, errDecode := DecodeDataURL(locator)
		if errDecode != nil {
			w.logger.Debugw("Failed to decode data locator", "err", errDecode)
			span.RecordError(errDecode)
			return fetcherr.New(SchemeData, locator, errDecode)
		}

		if errRegister := w.registry.Register("", locator, decoded.ContentType, decoded.Data); errRegister != nil {
			w.logger.Warnw("Failed to register data part", "err", errRegister)
		}

		part = parts.Part{ID: locator, ContentType: decoded.ContentType, Data: decoded.Data}
	}

	s.ContentType(part.ContentType)
	if !req.ValidateOnly {
		s.Data(part.Data)
	}

	return nil
}
