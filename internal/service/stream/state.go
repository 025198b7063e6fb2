package stream

// State is the stream controller state.
type State int

const (
	// Idle means the stream is stopped and no timer is pending.
	Idle State = iota
	// Active means the stream is started and no timer is pending.
	Active
	// CoolingDown means the stream is started and the inactivity timer is pending.
	CoolingDown
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case CoolingDown:
		return "cooling-down"
	default:
		return "unknown"
	}
}
