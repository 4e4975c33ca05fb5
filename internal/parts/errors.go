package parts

import "errors"

var (
	ErrRejected = errors.New("parts: registration rejected")
)
