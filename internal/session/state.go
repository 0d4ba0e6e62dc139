package session

type State int32

const (
	Idle State = iota
	Starting
	Active
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// Outcome is how a session ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeStalled
	OutcomeDisconnected
	OutcomeLaunchFailed
	OutcomeDisposed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeStalled:
		return "stalled"
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeLaunchFailed:
		return "launch_failed"
	case OutcomeDisposed:
		return "disposed"
	}
	return "unknown"
}
