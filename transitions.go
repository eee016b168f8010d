package camcorder

// command is a client request that is planned against the current state.
type command uint8

const (
	cmdTurnOn command = iota + 1
	cmdTurnOff
	cmdStartRecording
	cmdStopRecording
	cmdFocus
)

func (c command) String() string {
	switch c {
	case cmdTurnOn:
		return "turn_on"
	case cmdTurnOff:
		return "turn_off"
	case cmdStartRecording:
		return "start_recording"
	case cmdStopRecording:
		return "stop_recording"
	case cmdFocus:
		return "focus"
	default:
		return "unknown"
	}
}

// step is one primitive transition executed on the work loop.
type step uint8

const (
	stepTurnOn step = iota + 1
	stepTurnOff
	stepStartRecording
	stepStopRecording
	stepFocus
)

func (s step) String() string {
	switch s {
	case stepTurnOn:
		return "turn_on"
	case stepTurnOff:
		return "turn_off"
	case stepStartRecording:
		return "start_recording"
	case stepStopRecording:
		return "stop_recording"
	case stepFocus:
		return "focus"
	default:
		return "unknown"
	}
}

// plan is either an ordered list of steps or a rejection.
type plan struct {
	steps  []step
	reject ErrorCode
}

func steps(s ...step) plan      { return plan{steps: s} }
func rejected(c ErrorCode) plan { return plan{reject: c} }

// transitions is the complete state table. Composite transitions are spelled
// out as step lists rather than nested commands.
var transitions = map[State]map[command]plan{
	StateOff: {
		cmdTurnOn:         steps(stepTurnOn),
		cmdTurnOff:        rejected(CodeNotTurnedOn),
		cmdStartRecording: rejected(CodeNotTurnedOn),
		cmdStopRecording:  rejected(CodeNotRecording),
		cmdFocus:          rejected(CodeNotTurnedOn),
	},
	StateOn: {
		cmdTurnOn:         steps(stepTurnOff, stepTurnOn),
		cmdTurnOff:        steps(stepTurnOff),
		cmdStartRecording: steps(stepStartRecording),
		cmdStopRecording:  rejected(CodeNotRecording),
		cmdFocus:          steps(stepFocus),
	},
	StateRecording: {
		cmdTurnOn:         steps(stepStopRecording, stepTurnOff, stepTurnOn),
		cmdTurnOff:        steps(stepStopRecording, stepTurnOff),
		cmdStartRecording: rejected(CodeAlreadyRecording),
		cmdStopRecording:  steps(stepStopRecording),
		cmdFocus:          steps(stepFocus),
	},
}

// planFor looks up the transition for cmd in state from. It reports false
// for transient states, which the work loop never plans from.
func planFor(from State, cmd command) (plan, bool) {
	byCmd, ok := transitions[from]
	if !ok {
		return plan{}, false
	}
	p, ok := byCmd[cmd]
	return p, ok
}
