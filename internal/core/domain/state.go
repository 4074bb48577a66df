package domain

// State is a lifecycle phase of the server process.
type State int32

// Lifecycle states. Transitions only move forward:
// Starting -> Serving -> Draining -> Stopped.
const (
	StateStarting State = iota
	StateServing
	StateDraining
	StateStopped
)

// String returns the lower-case state name used in probes and logs.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ready reports whether the state accepts new traffic.
func (s State) Ready() bool { return s == StateServing }

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	return next > s && next <= StateStopped
}
