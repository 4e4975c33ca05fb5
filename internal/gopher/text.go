package gopher

// textFilter strips the dot that starts a line of a text item, as required by the
// text-item termination convention. A line starts after CRLF.
type textFilter struct {
	out       *lineBuffer
	lineStart bool
	prevCR    bool
	scratch   []byte
}

func newTextFilter(out *lineBuffer) *textFilter {
	return &textFilter{out: out, lineStart: true}
}

func (f *textFilter) Write(chunk []byte) error {
	f.scratch = f.scratch[:0]

	for _, c := range chunk {
		if f.lineStart && c == '.' {
			f.lineStart = false
			f.prevCR = false
			continue
		}

		f.lineStart = c == '\n' && f.prevCR
		f.prevCR = c == '\r'
		f.scratch = append(f.scratch, c)
	}

	f.out.Write(f.scratch)
	return nil
}

func (f *textFilter) Close() {}
