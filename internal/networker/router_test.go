package networker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/sink"
	"content-fetch/internal/sink/sinktest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter() *Router {
	r := NewRouter(zap.NewNop().Sugar())

	r.Handle("ok", WorkerFunc(func(_ context.Context, _ *config.FetchRequest, s sink.Sink) error {
		s.ContentType("text/plain")
		s.Data([]byte("fine"))
		return nil
	}))
	r.Handle("fail", WorkerFunc(func(_ context.Context, req *config.FetchRequest, s sink.Sink) error {
		s.Data([]byte("partial"))
		return fetcherr.New("fail", req.URL, fetcherr.ErrMalformed)
	}))
	r.Handle("plain", WorkerFunc(func(_ context.Context, _ *config.FetchRequest, _ sink.Sink) error {
		return errors.New("boom")
	}))
	r.Handle("panic", WorkerFunc(func(_ context.Context, _ *config.FetchRequest, _ sink.Sink) error {
		panic("worker bug")
	}))

	return r
}

func TestRouter_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantKind error
		wantBody string
	}{
		{name: "success", url: "ok:thing", wantBody: "fine"},
		{name: "scheme is case insensitive", url: "OK:thing", wantBody: "fine"},
		{name: "worker error keeps partial output", url: "fail:thing", wantKind: fetcherr.ErrMalformed, wantBody: "partial"},
		{name: "unknown scheme", url: "ftp://host/file", wantKind: fetcherr.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sinktest.NewRecorder()
			status := newTestRouter().Fetch(context.Background(), &config.FetchRequest{URL: tt.url}, rec)

			require.Len(t, rec.Statuses, 1)
			assert.Equal(t, status, rec.Statuses[0])
			assert.True(t, status.Terminate)
			assert.Equal(t, tt.wantBody, string(rec.Body()))

			if tt.wantKind == nil {
				assert.True(t, status.OK())
				assert.True(t, status.EOF)
				return
			}

			assert.ErrorIs(t, status.Err, tt.wantKind)
			var schemeErr *fetcherr.SchemeError
			require.ErrorAs(t, status.Err, &schemeErr)
			assert.Equal(t, tt.url, schemeErr.URL)
		})
	}
}

func TestRouter_WrapsPlainErrors(t *testing.T) {
	rec := sinktest.NewRecorder()
	status := newTestRouter().Fetch(context.Background(), &config.FetchRequest{URL: "plain:x"}, rec)

	var schemeErr *fetcherr.SchemeError
	require.ErrorAs(t, status.Err, &schemeErr)
	assert.Equal(t, "plain", schemeErr.Scheme)
	assert.EqualError(t, errors.Unwrap(schemeErr), "boom")
}

func TestRouter_RecoversPanics(t *testing.T) {
	rec := sinktest.NewRecorder()
	status := newTestRouter().Fetch(context.Background(), &config.FetchRequest{URL: "panic:x"}, rec)

	require.Len(t, rec.Statuses, 1)
	assert.ErrorIs(t, status.Err, ErrWorkerPanic)
}

func TestRouter_AssignsWorkerID(t *testing.T) {
	r := NewRouter(zap.NewNop().Sugar())

	var mu sync.Mutex
	seen := map[string]bool{}
	r.Handle("id", WorkerFunc(func(_ context.Context, req *config.FetchRequest, _ sink.Sink) error {
		mu.Lock()
		defer mu.Unlock()
		seen[req.WorkerID] = true
		return nil
	}))

	r.Fetch(context.Background(), &config.FetchRequest{URL: "id:a"}, sinktest.NewRecorder())
	r.Fetch(context.Background(), &config.FetchRequest{URL: "id:b"}, sinktest.NewRecorder())
	r.Fetch(context.Background(), &config.FetchRequest{URL: "id:c", WorkerID: "given"}, sinktest.NewRecorder())

	assert.Len(t, seen, 3)
	assert.True(t, seen["given"])
	assert.False(t, seen[""])
}

func TestRouter_GoAndStop(t *testing.T) {
	r := newTestRouter()

	recorders := make([]*sinktest.Recorder, 10)
	for i := range recorders {
		recorders[i] = sinktest.NewRecorder()
		r.Go(context.Background(), &config.FetchRequest{URL: "ok:x"}, recorders[i])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	for _, rec := range recorders {
		assert.Len(t, rec.Statuses, 1)
	}
}
