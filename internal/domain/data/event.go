package data

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventContentType EventKind = "content_type"
	EventData        EventKind = "data"
	EventProgress    EventKind = "progress"
	EventDone        EventKind = "done"
)

// Event is one render-sink call of a fetch, as published in service mode.
type Event struct {
	WorkerID string    `json:"workerID"`
	URL      string    `json:"url"`
	Kind     EventKind `json:"kind"`
	Seq      int       `json:"seq"`
	At       time.Time `json:"at"`

	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data,omitempty"`

	Progress string `json:"progress,omitempty"`
	Subject  string `json:"subject,omitempty"`

	EOF       bool   `json:"eof,omitempty"`
	Terminate bool   `json:"terminate,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func (e *Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Event) UnmarshalBinary(b []byte) error {
	return json.Unmarshal(b, e)
}
