package stream

// State is the lifecycle of a session. It only moves forward.
type State int32

const (
	Idle State = iota
	Resolving
	Streaming
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Streaming:
		return "streaming"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
