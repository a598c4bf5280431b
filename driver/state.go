package driver

import "errors"

// State is the lifecycle position of a Driver.
type State int

const (
	Idle State = iota
	Initialized
	Running
	FrameComplete
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case FrameComplete:
		return "frame_complete"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an operation is not allowed in the
// driver's current state.
var ErrInvalidTransition = errors.New("driver: invalid state transition")

// canAdvance reports whether frames may be executed from s.
func (s State) canAdvance() bool {
	return s == Initialized || s == FrameComplete
}
