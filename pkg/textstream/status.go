package textstream

// Status is the lifecycle state of a stream record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusTimeout   Status = "timeout"
)

// IsTerminal reports whether no further appends are accepted in this state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusError, StatusTimeout:
		return true
	}
	return false
}

// IsLive reports whether a producer may still append (pending or streaming).
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusStreaming
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.IsLive() || s.IsTerminal()
}

func (s Status) String() string {
	return string(s)
}
