package schemes

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"content-fetch/internal/fetcherr"
	"content-fetch/internal/parts"
)

// IngestMultipart registers every part of a multipart document that carries a Content-ID under scope,
// making it reachable through cid: locators. It returns the number of registered parts.
func IngestMultipart(registry *parts.Registry, scope, contentType string, body io.Reader) (int, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, fmt.Errorf("%w: content type %q: %w", fetcherr.ErrMalformed, contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return 0, fmt.Errorf("%w: %q is not a multipart type", fetcherr.ErrMalformed, contentType)
	}

	reader := multipart.NewReader(body, params["boundary"])
	registered := 0

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return registered, nil
		}
		if err != nil {
			return registered, fmt.Errorf("%w: read part: %w", fetcherr.ErrMalformed, err)
		}

		id := strings.TrimSpace(part.Header.Get("Content-ID"))
		if id == "" {
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return registered, fmt.Errorf("%w: read part %s: %w", fetcherr.ErrMalformed, id, err)
		}

		if strings.EqualFold(part.Header.Get("Content-Transfer-Encoding"), "base64") {
			data, err = base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(data), nil)))
			if err != nil {
				return registered, fmt.Errorf("%w: part %s: %w", fetcherr.ErrMalformed, id, err)
			}
		}

		partType, _, errType := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if errType != nil {
			partType = ""
		}

		if registry.Register(scope, id, partType, data) == nil {
			registered++
		}
	}
}
