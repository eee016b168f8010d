package camcorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCommands = []command{cmdTurnOn, cmdTurnOff, cmdStartRecording, cmdStopRecording, cmdFocus}

func TestTransitionTableIsExhaustive(t *testing.T) {
	for _, s := range allStates {
		for _, cmd := range allCommands {
			p, ok := planFor(s, cmd)
			if !s.IsStable() {
				assert.False(t, ok, "%s must not be planned from %s", cmd, s)
				continue
			}
			require.True(t, ok, "%s has no transition for %s", s, cmd)
			assert.True(t, (p.reject == 0) != (len(p.steps) == 0),
				"%s/%s must either reject or run steps", s, cmd)
		}
	}
}

func TestTransitionPlans(t *testing.T) {
	tests := []struct {
		from   State
		cmd    command
		steps  []step
		reject ErrorCode
	}{
		{StateOff, cmdTurnOn, []step{stepTurnOn}, 0},
		{StateOn, cmdTurnOn, []step{stepTurnOff, stepTurnOn}, 0},
		{StateRecording, cmdTurnOn, []step{stepStopRecording, stepTurnOff, stepTurnOn}, 0},
		{StateOff, cmdTurnOff, nil, CodeNotTurnedOn},
		{StateOn, cmdTurnOff, []step{stepTurnOff}, 0},
		{StateRecording, cmdTurnOff, []step{stepStopRecording, stepTurnOff}, 0},
		{StateOff, cmdStartRecording, nil, CodeNotTurnedOn},
		{StateOn, cmdStartRecording, []step{stepStartRecording}, 0},
		{StateRecording, cmdStartRecording, nil, CodeAlreadyRecording},
		{StateOff, cmdStopRecording, nil, CodeNotRecording},
		{StateOn, cmdStopRecording, nil, CodeNotRecording},
		{StateRecording, cmdStopRecording, []step{stepStopRecording}, 0},
		{StateOff, cmdFocus, nil, CodeNotTurnedOn},
		{StateOn, cmdFocus, []step{stepFocus}, 0},
		{StateRecording, cmdFocus, []step{stepFocus}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.cmd.String(), func(t *testing.T) {
			p, ok := planFor(tt.from, tt.cmd)
			require.True(t, ok)
			assert.Equal(t, tt.steps, p.steps)
			assert.Equal(t, tt.reject, p.reject)
		})
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, []string{"off", "turning_on", "on", "starting_recording", "recording", "stopping_recording"}, stateNames())
	assert.Equal(t, "state(99)", State(99).String())
	assert.Equal(t, "unknown", command(0).String())
	assert.Equal(t, "unknown", step(0).String())
}
