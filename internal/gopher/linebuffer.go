package gopher

import (
	"content-fetch/internal/sink"
)

// lineBuffer collects rendered output in a fixed-capacity buffer and hands it to the sink before it fills.
// The sink gets a transient slice and must copy what it keeps.
type lineBuffer struct {
	sink      sink.Sink
	buf       []byte
	threshold int
	delivered int
}

func newLineBuffer(s sink.Sink, capacity int) *lineBuffer {
	capacity = max(capacity, 64)

	return &lineBuffer{
		sink:      s,
		buf:       make([]byte, 0, capacity),
		threshold: capacity - capacity/8,
	}
}

func (b *lineBuffer) Write(p []byte) {
	for len(p) > 0 {
		room := b.threshold - len(b.buf)
		n := min(room, len(p))
		b.buf = append(b.buf, p[:n]...)
		p = p[n:]

		if len(b.buf) >= b.threshold {
			b.Flush()
		}
	}
}

func (b *lineBuffer) WriteString(s string) {
	for len(s) > 0 {
		room := b.threshold - len(b.buf)
		n := min(room, len(s))
		b.buf = append(b.buf, s[:n]...)
		s = s[n:]

		if len(b.buf) >= b.threshold {
			b.Flush()
		}
	}
}

func (b *lineBuffer) Flush() {
	if len(b.buf) == 0 {
		return
	}
	b.sink.Data(b.buf)
	b.delivered += len(b.buf)
	b.buf = b.buf[:0]
}
