package schemes

import (
	"fmt"

	"content-fetch/internal/fetcherr"
)

var (
	ErrMissingComma = fmt.Errorf("%w: data locator without comma", fetcherr.ErrMalformed)
	ErrEmptyPayload = fmt.Errorf("%w: empty data payload", fetcherr.ErrMalformed)
	ErrBadBase64    = fmt.Errorf("%w: invalid base64 payload", fetcherr.ErrMalformed)
	ErrNoReferer    = fmt.Errorf("%w: content reference without referring document", fetcherr.ErrMalformed)
	ErrEmptyToken   = fmt.Errorf("%w: empty content reference", fetcherr.ErrMalformed)
)
