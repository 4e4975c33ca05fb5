package networker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/sink"
	"content-fetch/internal/sniffer"
	"content-fetch/internal/transport"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// SessionOpener hands out the network stack to dial through.
type SessionOpener interface {
	OpenSession(ctx context.Context, wantsSecure bool) (*transport.Session, error)
}

// HTTPWorker fetches http and https documents. TLS for https is handled by net/http itself.
type HTTPWorker struct {
	Logger   *zap.SugaredLogger
	sessions SessionOpener
	table    *sniffer.Table
	client   *http.Client
}

func NewHTTPWorker(logger *zap.SugaredLogger, sessions SessionOpener, table *sniffer.Table) *HTTPWorker {
	w := &HTTPWorker{
		Logger:   logger,
		sessions: sessions,
		table:    table,
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           w.dial,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	w.client = &http.Client{Transport: otelhttp.NewTransport(base)}

	return w
}

func (w *HTTPWorker) dial(ctx context.Context, network, address string) (net.Conn, error) {
	session, err := w.sessions.OpenSession(ctx, false)
	if err != nil {
		return nil, err
	}
	return session.DialContext(ctx, network, address)
}

func (w *HTTPWorker) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error {
	scheme := req.Scheme()

	method := http.MethodGet
	if req.ValidateOnly {
		method = http.MethodHead
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return fetcherr.New(scheme, req.URL, fmt.Errorf("%w: %w", fetcherr.ErrMalformed, err))
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}

	s.Progress(sink.ProgressConnecting, httpReq.URL.Hostname())
	w.Logger.Debugw("Fetch url", "url", req.URL, "method", method)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		w.Logger.Warnw("Fetch url failed", "url", req.URL, "err", err)
		return fetcherr.New(scheme, req.URL, w.transportError(ctx, err))
	}
	defer resp.Body.Close()

	statusErr := statusError(resp)
	if statusErr != nil {
		statusErr = fetcherr.New(scheme, req.URL, statusErr)
	}

	declared := resp.Header.Get("Content-Type")
	if req.ValidateOnly {
		s.ContentType(w.table.Classify(declared, httpReq.URL.Path, nil))
		return statusErr
	}

	s.Progress(sink.ProgressWaiting, httpReq.URL.Hostname())

	buf := req.ScratchBuffer()
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fetcherr.New(scheme, req.URL, w.transportError(ctx, err))
	}

	s.ContentType(w.table.Classify(declared, httpReq.URL.Path, buf[:n]))
	if n > 0 {
		s.Data(buf[:n])
	}
	if n < len(buf) {
		return statusErr
	}

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			s.Data(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return statusErr
		}
		if err != nil {
			return fetcherr.New(scheme, req.URL, w.transportError(ctx, err))
		}
	}
}

// statusError reports a non-2xx response. The body is still delivered so error pages render.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %w: %s", fetcherr.ErrNotFound, ErrHTTPStatus, resp.Status)
	default:
		return fmt.Errorf("%w: %w: %s", fetcherr.ErrUnavailable, ErrHTTPStatus, resp.Status)
	}
}

func (w *HTTPWorker) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if errors.Is(err, fetcherr.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", fetcherr.ErrUnavailable, err)
}
