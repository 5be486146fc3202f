package fiber

// State is a fiber lifecycle state.
type State int32

const (
	StateCreated    State = iota // not started yet
	StateRunning                 // executing, or running another fiber
	StateSuspended               // parked in Yield
	StateTerminated              // entry returned, failed or was reset
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
