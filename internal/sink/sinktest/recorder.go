package sinktest

import (
	"bytes"
	"sync"

	"content-fetch/internal/sink"
)

type ProgressEvent struct {
	Kind    sink.ProgressKind
	Subject string
}

// Recorder keeps every call made on it. Data chunks are copied.
type Recorder struct {
	mu sync.Mutex

	ContentTypes []string
	Chunks       [][]byte
	Progresses   []ProgressEvent
	Statuses     []sink.Status

	done chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{done: make(chan struct{})}
}

func (r *Recorder) ContentType(contentType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ContentTypes = append(r.ContentTypes, contentType)
}

func (r *Recorder) Data(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Chunks = append(r.Chunks, bytes.Clone(chunk))
}

func (r *Recorder) Progress(kind sink.ProgressKind, subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progresses = append(r.Progresses, ProgressEvent{Kind: kind, Subject: subject})
}

func (r *Recorder) Done(status sink.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statuses = append(r.Statuses, status)
	if len(r.Statuses) == 1 {
		close(r.done)
	}
}

// Wait returns a channel closed on the first Done.
func (r *Recorder) Wait() <-chan struct{} {
	return r.done
}

func (r *Recorder) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Join(r.Chunks, nil)
}

func (r *Recorder) LastStatus() (sink.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Statuses) == 0 {
		return sink.Status{}, false
	}
	return r.Statuses[len(r.Statuses)-1], true
}

func (r *Recorder) LastContentType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ContentTypes) == 0 {
		return ""
	}
	return r.ContentTypes[len(r.ContentTypes)-1]
}
