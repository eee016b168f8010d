package camcorder

import "fmt"

// State is the session state of a Camcorder.
type State uint32

const (
	// StateOff means no capture session is open.
	StateOff State = iota
	// StateTurningOn means the capture session is being composed.
	StateTurningOn
	// StateOn means the session delivers buffers and no recording runs.
	StateOn
	// StateStartingRecording means a movie writer is being opened.
	StateStartingRecording
	// StateRecording means buffers are routed to the movie writer.
	StateRecording
	// StateStoppingRecording means the movie writer is being sealed.
	StateStoppingRecording
)

var allStates = []State{
	StateOff,
	StateTurningOn,
	StateOn,
	StateStartingRecording,
	StateRecording,
	StateStoppingRecording,
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateTurningOn:
		return "turning_on"
	case StateOn:
		return "on"
	case StateStartingRecording:
		return "starting_recording"
	case StateRecording:
		return "recording"
	case StateStoppingRecording:
		return "stopping_recording"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// IsStable reports whether s is a state commands can be planned from.
func (s State) IsStable() bool {
	return s == StateOff || s == StateOn || s == StateRecording
}

// stateNames lists every state name, for one-hot gauges.
func stateNames() []string {
	names := make([]string, len(allStates))
	for i, s := range allStates {
		names[i] = s.String()
	}
	return names
}
