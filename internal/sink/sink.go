package sink

type ProgressKind int

const (
	ProgressLookingUp ProgressKind = iota
	ProgressConnecting
	ProgressWaiting
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressLookingUp:
		return "looking up"
	case ProgressConnecting:
		return "connecting"
	case ProgressWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Status is the terminal report of a fetch. A non-nil Err marks failure.
type Status struct {
	Err       error
	EOF       bool
	Terminate bool
}

func (s Status) OK() bool {
	return s.Err == nil
}

// Sink receives everything a worker produces for one fetch.
// Data chunks may point into registry-owned memory and must not be modified or retained past the call
// unless the sink copies them.
type Sink interface {
	ContentType(contentType string)
	Data(chunk []byte)
	Progress(kind ProgressKind, subject string)
	Done(status Status)
}
