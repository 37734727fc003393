package media

// MessageKind identifies a bus message variant. The set is closed: routing
// decisions switch over it rather than registering ad hoc per-call
// closures, which keeps the single-writer topology-mutation discipline
// enforceable.
type MessageKind int

const (
	// MessageOther is any informational message kind not listed below.
	MessageOther MessageKind = iota
	// MessageEOS signals end of stream for the whole pipeline.
	MessageEOS
	// MessageError signals a fatal framework error.
	MessageError
	// MessageWarning signals a non-fatal framework warning.
	MessageWarning
	// MessageStateChanged reports a committed state change on some node.
	MessageStateChanged
	// MessageStreamStatus reports framework worker thread status.
	MessageStreamStatus
)

// String returns the string representation of MessageKind
func (k MessageKind) String() string {
	switch k {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageStateChanged:
		return "state-changed"
	case MessageStreamStatus:
		return "stream-status"
	default:
		return "other"
	}
}

// Message is a typed bus notification.
type Message struct {
	Kind   MessageKind
	Source string // name of the node that posted the message

	// Error and Warning payload.
	Code  int
	Text  string
	Debug string

	// StateChanged payload.
	Old     State
	New     State
	Pending State
}
