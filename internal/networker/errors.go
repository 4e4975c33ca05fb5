package networker

import (
	"errors"
	"fmt"

	"content-fetch/internal/fetcherr"
)

var (
	ErrUnknownScheme = fmt.Errorf("%w: no worker for scheme", fetcherr.ErrUnavailable)
	ErrWorkerPanic   = errors.New("worker panicked")
	ErrHTTPStatus    = errors.New("unsuccessful http status")
)
