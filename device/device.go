// Package device defines the contract between the camcorder and the
// camera/microphone hardware that feeds it.
//
// A Device is opened with a Config, started with a Handler, and from then on
// delivers sample buffers and configuration changes to that handler from
// whatever goroutine the hardware uses. The camcorder only ever calls a
// Device from its own work loop, so implementations need not serialise their
// control methods against each other.
package device

import (
	"fmt"
	"math"

	"github.com/opd-ai/camcorder/media"
)

// Position selects a camera.
type Position uint8

const (
	// PositionNone lets the device pick its default camera.
	PositionNone Position = iota
	// PositionFront is the user-facing camera.
	PositionFront
	// PositionBack is the world-facing camera.
	PositionBack
)

// String returns the string representation of the position.
func (p Position) String() string {
	switch p {
	case PositionNone:
		return "none"
	case PositionFront:
		return "front"
	case PositionBack:
		return "back"
	default:
		return fmt.Sprintf("position(%d)", uint8(p))
	}
}

// Resolve maps PositionNone onto the default back camera.
func (p Position) Resolve() Position {
	if p == PositionNone {
		return PositionBack
	}
	return p
}

// ParsePosition parses the output of Position.String.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "", "none":
		return PositionNone, nil
	case "front":
		return PositionFront, nil
	case "back":
		return PositionBack, nil
	default:
		return PositionNone, fmt.Errorf("unknown camera position %q", s)
	}
}

// Config is the session configuration fixed at turn-on.
type Config struct {
	Position Position
	Audio    bool
}

// FocusMode selects how the lens focuses on a point of interest.
type FocusMode uint8

const (
	// FocusAuto focuses once and then locks.
	FocusAuto FocusMode = iota + 1
	// FocusContinuous keeps refocusing as the scene changes.
	FocusContinuous
)

// String returns the string representation of the focus mode.
func (m FocusMode) String() string {
	switch m {
	case FocusAuto:
		return "auto"
	case FocusContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("focus(%d)", uint8(m))
	}
}

// Point is a point of interest in normalised frame coordinates, (0,0) top
// left and (1,1) bottom right.
type Point struct {
	X float64
	Y float64
}

// Clamp limits both coordinates to [0,1].
func (p Point) Clamp() Point {
	return Point{X: clampUnit(p.X), Y: clampUnit(p.Y)}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Change describes a configuration change the hardware made on its own, such
// as a rotation or an exposure adjustment.
type Change struct {
	Reason string
	Detail map[string]string
}

// Handler receives everything a started device produces. Implementations
// must not block.
type Handler interface {
	HandleSampleBuffer(buf media.SampleBuffer)
	HandleConfigurationChange(change Change)
}

// Device is a capture session on a camera and optional microphone.
type Device interface {
	// Open composes the session for cfg. It fails with one of the wiring
	// sentinel errors when a device or input/output leg is unavailable.
	Open(cfg Config) error
	// Start begins delivery to h.
	Start(h Handler) error
	// Stop ends delivery. No handler call starts after Stop returns.
	Stop() error
	// Close releases the session. The device may be opened again.
	Close() error
	// SupportsFocus reports whether Focus can be used.
	SupportsFocus() bool
	// Focus points the lens at p.
	Focus(mode FocusMode, p Point) error
}
