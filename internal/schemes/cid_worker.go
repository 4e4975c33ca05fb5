package schemes

import (
	"context"
	"net/url"
	"strings"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/parts"
	"content-fetch/internal/sink"

	"go.uber.org/zap"
)

const cidPrefix = "cid:"

// CIDWorker serves parts embedded in the referring document. Data is handed to the sink straight from
// the registry without copying.
type CIDWorker struct {
	logger   *zap.SugaredLogger
	registry *parts.Registry
}

func NewCIDWorker(logger *zap.SugaredLogger, registry *parts.Registry) *CIDWorker {
	return &CIDWorker{
		logger:   logger,
		registry: registry,
	}
}

func (w *CIDWorker) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error {
	_, span := tracer.Start(ctx, "cid.fetch")
	defer span.End()

	token := req.URL
	if len(token) >= len(cidPrefix) && strings.EqualFold(token[:len(cidPrefix)], cidPrefix) {
		token = token[len(cidPrefix):]
	}
	if unescaped, err := url.PathUnescape(token); err == nil {
		token = unescaped
	}

	switch {
	case req.Referer == "":
		return fetcherr.New(SchemeCID, req.URL, ErrNoReferer)
	case token == "":
		return fetcherr.New(SchemeCID, req.URL, ErrEmptyToken)
	}

	part, err := w.registry.Find(req.Referer, token)
	if err != nil {
		w.logger.Debugw("Content reference not registered", "referer", req.Referer, "id", token)
		span.RecordError(err)
		return fetcherr.New(SchemeCID, req.URL, err)
	}

	s.ContentType(part.ContentType)
	if !req.ValidateOnly {
		s.Data(part.Data)
	}

	return nil
}
