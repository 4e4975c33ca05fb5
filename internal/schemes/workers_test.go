package schemes

import (
	"context"
	"strings"
	"testing"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/fetcherr"
	"content-fetch/internal/parts"
	"content-fetch/internal/sink/sinktest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDataWorker_DecodesAndRegisters(t *testing.T) {
	registry := parts.NewRegistry(zap.NewNop().Sugar())
	worker := NewDataWorker(zap.NewNop().Sugar(), registry)
	rec := sinktest.NewRecorder()

	locator := "data:text/plain;base64,SGVsbG8="
	err := worker.Fetch(context.Background(), &config.FetchRequest{URL: locator}, rec)
	require.NoError(t, err)

	assert.Equal(t, "text/plain", rec.LastContentType())
	assert.Equal(t, "Hello", string(rec.Body()))

	part, err := registry.Find("", locator)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", part.ContentType)
	assert.Equal(t, "Hello", string(part.Data))
	assert.Empty(t, part.Scope)
}

func TestDataWorker_ServesRegisteredPart(t *testing.T) {
	registry := parts.NewRegistry(zap.NewNop().Sugar())
	worker := NewDataWorker(zap.NewNop().Sugar(), registry)

	locator := "data:image/gif;base64,R0lGODlh"
	require.NoError(t, registry.Register("", locator, "image/png", []byte("cached")))

	rec := sinktest.NewRecorder()
	require.NoError(t, worker.Fetch(context.Background(), &config.FetchRequest{URL: locator}, rec))

	assert.Equal(t, "image/png", rec.LastContentType())
	assert.Equal(t, "cached", string(rec.Body()))
}

func TestDataWorker_ValidateOnly(t *testing.T) {
	worker := NewDataWorker(zap.NewNop().Sugar(), parts.NewRegistry(zap.NewNop().Sugar()))
	rec := sinktest.NewRecorder()

	err := worker.Fetch(context.Background(), &config.FetchRequest{URL: "data:,abc", ValidateOnly: true}, rec)
	require.NoError(t, err)
	assert.Empty(t, rec.Chunks)
}

func TestDataWorker_MalformedReportsSchemeError(t *testing.T) {
	registry := parts.NewRegistry(zap.NewNop().Sugar())
	worker := NewDataWorker(zap.NewNop().Sugar(), registry)
	rec := sinktest.NewRecorder()

	err := worker.Fetch(context.Background(), &config.FetchRequest{URL: "data:text/plain"}, rec)

	var schemeErr *fetcherr.SchemeError
	require.ErrorAs(t, err, &schemeErr)
	assert.Equal(t, SchemeData, schemeErr.Scheme)
	assert.Equal(t, "data:text/plain", schemeErr.URL)
	assert.ErrorIs(t, err, fetcherr.ErrMalformed)
	assert.Empty(t, rec.Chunks)
	assert.Equal(t, 0, registry.Len())
}

func TestCIDWorker(t *testing.T) {
	registry := parts.NewRegistry(zap.NewNop().Sugar())
	require.NoError(t, registry.Register("http://mail/msg1", "<logo@mail>", "image/gif", []byte("GIF89a")))
	worker := NewCIDWorker(zap.NewNop().Sugar(), registry)

	tests := []struct {
		name    string
		req     config.FetchRequest
		wantErr error
	}{
		{name: "hit", req: config.FetchRequest{URL: "cid:logo@mail", Referer: "http://mail/msg1"}},
		{name: "escaped hit", req: config.FetchRequest{URL: "CID:logo%40mail", Referer: "HTTP://mail/msg1"}},
		{name: "other document", req: config.FetchRequest{URL: "cid:logo@mail", Referer: "http://mail/msg2"}, wantErr: fetcherr.ErrNotFound},
		{name: "no referer", req: config.FetchRequest{URL: "cid:logo@mail"}, wantErr: ErrNoReferer},
		{name: "empty token", req: config.FetchRequest{URL: "cid:", Referer: "http://mail/msg1"}, wantErr: ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sinktest.NewRecorder()
			err := worker.Fetch(context.Background(), &tt.req, rec)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, rec.Chunks)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "image/gif", rec.LastContentType())
			assert.Equal(t, "GIF89a", string(rec.Body()))
		})
	}
}

func TestIngestMultipart(t *testing.T) {
	body := strings.Join([]string{
		"--b1",
		"Content-Type: text/html",
		"",
		"<img src=\"cid:pic@x\">",
		"--b1",
		"Content-Type: image/gif; name=pic.gif",
		"Content-ID: <pic@x>",
		"Content-Transfer-Encoding: base64",
		"",
		"R0lG",
		"ODlh",
		"--b1",
		"Content-ID: <note@x>",
		"",
		"plain note",
		"--b1--",
		"",
	}, "\r\n")

	registry := parts.NewRegistry(zap.NewNop().Sugar())
	n, err := IngestMultipart(registry, "http://mail/msg1", `multipart/related; boundary="b1"`, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pic, err := registry.Find("http://mail/msg1", "pic@x")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", pic.ContentType)
	assert.Equal(t, "GIF89a", string(pic.Data))

	note, err := registry.Find("http://mail/msg1", "<note@x>")
	require.NoError(t, err)
	assert.Equal(t, parts.DefaultContentType, note.ContentType)
	assert.Equal(t, "plain note", string(note.Data))

	_, err = IngestMultipart(registry, "http://mail/msg1", "text/plain", strings.NewReader(body))
	assert.ErrorIs(t, err, fetcherr.ErrMalformed)
}
