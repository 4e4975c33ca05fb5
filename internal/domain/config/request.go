package config

import "strings"

const DefaultBufferSize = 8192

// FetchRequest describes one in-flight fetch handed to a worker.
type FetchRequest struct {
	URL          string `json:"url"`
	Referer      string `json:"referer,omitempty"`
	ValidateOnly bool   `json:"validate_only,omitempty"`
	WorkerID     string `json:"worker_id,omitempty"`

	// Buffer is scratch space for protocol I/O. Workers allocate DefaultBufferSize when it is nil.
	Buffer []byte `json:"-"`
}

func (r *FetchRequest) Scheme() string {
	if i := strings.IndexByte(r.URL, ':'); i > 0 {
		return strings.ToLower(r.URL[:i])
	}
	return ""
}

func (r *FetchRequest) ScratchBuffer() []byte {
	if len(r.Buffer) == 0 {
		r.Buffer = make([]byte, DefaultBufferSize)
	}
	return r.Buffer
}
