package chatrelay

// State is the lifecycle state of a Runner.
type State int32

const (
	// StateIdle means the runner waits for the next timer fire.
	StateIdle State = iota
	// StateRunning means a tick is in progress.
	StateRunning
	// StateStopped means Run returned or was never called.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
