package sink

import (
	"io"

	"go.uber.org/zap"
)

// WriterSink copies data chunks to an io.Writer and logs everything else.
type WriterSink struct {
	logger *zap.SugaredLogger
	out    io.Writer
	url    string
	done   chan Status
}

func NewWriterSink(logger *zap.SugaredLogger, out io.Writer, url string) *WriterSink {
	return &WriterSink{
		logger: logger,
		out:    out,
		url:    url,
		done:   make(chan Status, 1),
	}
}

func (s *WriterSink) ContentType(contentType string) {
	s.logger.Infow("Content type", "url", s.url, "type", contentType)
}

func (s *WriterSink) Data(chunk []byte) {
	if _, err := s.out.Write(chunk); err != nil {
		s.logger.Warnw("Failed to write chunk", "url", s.url, "err", err)
	}
}

func (s *WriterSink) Progress(kind ProgressKind, subject string) {
	s.logger.Debugw("Progress", "url", s.url, "state", kind.String(), "subject", subject)
}

func (s *WriterSink) Done(status Status) {
	if status.Err != nil {
		s.logger.Warnw("Fetch failed", "url", s.url, "err", status.Err)
	} else {
		s.logger.Infow("Fetch finished", "url", s.url, "eof", status.EOF)
	}

	select {
	case s.done <- status:
	default:
	}
}

// Wait blocks until Done has been called.
func (s *WriterSink) Wait() Status {
	return <-s.done
}
