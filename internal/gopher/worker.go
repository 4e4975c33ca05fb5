// Package gopher implements the Gopher and secure Gopher fetch worker.
package gopher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/resolver"
	"content-fetch/internal/sink"
	"content-fetch/internal/sniffer"
	"content-fetch/internal/transport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("content-fetch/internal/gopher")

// maxRecordBuffers bounds an unterminated directory record, in scratch buffers.
const maxRecordBuffers = 8

type state int

const (
	stateStart state = iota
	stateResolve
	stateConnect
	stateSendSelector
	stateReceive
	stateDone
	stateError
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "START"
	case stateResolve:
		return "RESOLVE"
	case stateConnect:
		return "CONNECT"
	case stateSendSelector:
		return "SEND_SELECTOR"
	case stateReceive:
		return "RECEIVE"
	case stateDone:
		return "DONE"
	case stateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sessions is the part of the transport manager the worker needs.
type Sessions interface {
	OpenSession(ctx context.Context, wantsSecure bool) (*transport.Session, error)
	ClaimSecureContext(workerID string) (*transport.SecureContext, func())
}

type Worker struct {
	logger     *zap.SugaredLogger
	resolver   resolver.Resolver
	sessions   Sessions
	table      *sniffer.Table
	iconPrefix string
}

func NewWorker(logger *zap.SugaredLogger, res resolver.Resolver, sessions Sessions, table *sniffer.Table, iconPrefix string) *Worker {
	return &Worker{
		logger:     logger,
		resolver:   res,
		sessions:   sessions,
		table:      table,
		iconPrefix: iconPrefix,
	}
}

// bodyWriter post-processes the response of one item type.
type bodyWriter interface {
	Write(chunk []byte) error
	Close()
}

type fetch struct {
	w    *Worker
	req  *config.FetchRequest
	sink sink.Sink
	span trace.Span

	scheme string
	addr   *Address
	state  state

	releaseSecure func()
}

func (w *Worker) Fetch(ctx context.Context, req *config.FetchRequest, s sink.Sink) error {
	ctx, span := tracer.Start(ctx, "gopher.fetch", trace.WithAttributes(attribute.String("gopher.url", req.URL)))
	defer span.End()

	f := &fetch{w: w, req: req, sink: s, span: span, scheme: req.Scheme(), state: stateStart}
	if f.scheme == "" {
		f.scheme = "gopher"
	}

	defer func() {
		if f.releaseSecure != nil {
			f.releaseSecure()
		}
	}()

	if err := f.run(ctx); err != nil {
		f.transition(stateError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.Warnw("Gopher fetch failed", "url", req.URL, "err", err)
		return err
	}

	f.transition(stateDone)
	return nil
}

func (f *fetch) transition(to state) {
	f.w.logger.Debugw("Gopher state", "url", f.req.URL, "from", f.state.String(), "to", to.String())
	f.span.AddEvent(to.String())
	f.state = to
}

func (f *fetch) fail(err error) error {
	return fetcherr.New(f.scheme, f.req.URL, err)
}

func (f *fetch) run(ctx context.Context) error {
	addr, err := ParseAddress(f.req.URL)
	if err != nil {
		return f.fail(err)
	}
	f.addr = addr
	f.span.SetAttributes(attribute.String("gopher.target", addr.HostPort()))

	if addr.Type == TypeIndex && !addr.HasQuery {
		f.sink.ContentType(sniffer.TypeHTML)
		if !f.req.ValidateOnly {
			f.sink.Data([]byte(searchPage(addr)))
		}
		return nil
	}

	f.transition(stateResolve)
	f.sink.Progress(sink.ProgressLookingUp, addr.Host)

	host, err := f.w.resolver.Resolve(ctx, addr.Host)
	if err != nil {
		return f.fail(err)
	}

	f.transition(stateConnect)
	f.sink.Progress(sink.ProgressConnecting, addr.Host)

	conn, err := f.connect(ctx, host)
	if err != nil {
		return f.fail(err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if f.req.ValidateOnly {
		if ct, ok := f.declaredType(); ok {
			f.sink.ContentType(ct)
		}
		return nil
	}

	f.transition(stateSendSelector)
	if _, err := io.WriteString(conn, addr.Request()); err != nil {
		return f.fail(f.ioError(ctx, "send selector", err))
	}

	f.transition(stateReceive)
	f.sink.Progress(sink.ProgressWaiting, addr.Host)

	return f.receive(ctx, conn)
}

func (f *fetch) connect(ctx context.Context, host *resolver.CachedHost) (net.Conn, error) {
	session, err := f.w.sessions.OpenSession(ctx, f.addr.Secure)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %w", fetcherr.ErrUnavailable, ErrNoSession)
	}

	target := netip.AddrPortFrom(host.Addr, uint16(f.addr.Port)).String()
	conn, err := session.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, f.ioError(ctx, "connect "+target, err)
	}

	if !f.addr.Secure {
		return conn, nil
	}

	sc, release := f.w.sessions.ClaimSecureContext(f.req.WorkerID)
	f.releaseSecure = release

	secured, err := sc.Client(ctx, conn, f.addr.Host)
	if err != nil {
		return nil, f.ioError(ctx, "secure handshake", err)
	}
	return secured, nil
}

func (f *fetch) receive(ctx context.Context, conn net.Conn) error {
	out := newLineBuffer(f.sink, len(f.req.ScratchBuffer()))
	body := f.bodyWriter(out)
	buf := f.req.ScratchBuffer()

	var received int
	for {
		if err := ctx.Err(); err != nil {
			out.Flush()
			return f.fail(err)
		}

		n, err := conn.Read(buf)
		if n > 0 {
			received += n
			if errWrite := body.Write(buf[:n]); errWrite != nil {
				out.Flush()
				return f.fail(errWrite)
			}
		}

		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			out.Flush()
			return f.fail(f.ioError(ctx, "receive", err))
		}
	}

	body.Close()
	out.Flush()

	f.span.SetAttributes(
		attribute.Int("gopher.received_bytes", received),
		attribute.Int("gopher.delivered_bytes", out.delivered),
	)
	return nil
}

func (f *fetch) bodyWriter(out *lineBuffer) bodyWriter {
	switch f.addr.Type {
	case TypeDirectory, TypeIndex:
		f.sink.ContentType(sniffer.TypeHTML)
		return newDirectoryRenderer(f.w.logger, out, f.addr, f.w.iconPrefix, maxRecordBuffers*len(f.req.ScratchBuffer()))
	case TypeText:
		f.sink.ContentType(sniffer.TypePlain)
		return newTextFilter(out)
	}

	if ct, ok := f.declaredType(); ok {
		f.sink.ContentType(ct)
		return &passthrough{out: out, announced: true}
	}

	return &passthrough{out: out, announce: func(first []byte) {
		f.sink.ContentType(f.w.table.Classify("", f.addr.Selector, first))
	}}
}

// declaredType is the content type implied by the item type alone.
func (f *fetch) declaredType() (string, bool) {
	switch f.addr.Type {
	case TypeDirectory, TypeIndex, TypeHTML:
		return sniffer.TypeHTML, true
	case TypeText:
		return sniffer.TypePlain, true
	case TypeGIF:
		return sniffer.TypeGIF, true
	}
	return "", false
}

func (f *fetch) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", fetcherr.ErrUnavailable, op, err)
}

// passthrough delivers the body unchanged, announcing the content type from the first chunk when the item
// type does not imply one.
type passthrough struct {
	out       *lineBuffer
	announce  func(first []byte)
	announced bool
}

func (p *passthrough) Write(chunk []byte) error {
	if !p.announced {
		p.announce(chunk)
		p.announced = true
	}
	p.out.Write(chunk)
	return nil
}

func (p *passthrough) Close() {
	if !p.announced {
		p.announce(nil)
		p.announced = true
	}
}
