package device

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionResolve(t *testing.T) {
	assert.Equal(t, PositionBack, PositionNone.Resolve())
	assert.Equal(t, PositionFront, PositionFront.Resolve())
	assert.Equal(t, PositionBack, PositionBack.Resolve())
}

func TestParsePosition(t *testing.T) {
	for _, p := range []Position{PositionNone, PositionFront, PositionBack} {
		got, err := ParsePosition(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePosition("sideways")
	assert.Error(t, err)
	assert.Equal(t, "position(9)", Position(9).String())
}

func TestPointClamp(t *testing.T) {
	tests := []struct {
		in   Point
		want Point
	}{
		{Point{0.5, 0.25}, Point{0.5, 0.25}},
		{Point{-1, 2}, Point{0, 1}},
		{Point{math.NaN(), math.Inf(1)}, Point{0, 1}},
		{Point{1, 0}, Point{1, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Clamp())
	}
}

func TestFocusModeString(t *testing.T) {
	assert.Equal(t, "auto", FocusAuto.String())
	assert.Equal(t, "continuous", FocusContinuous.String())
	assert.Equal(t, "focus(0)", FocusMode(0).String())
}
