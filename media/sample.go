package media

import (
	"fmt"
	"time"
)

// Kind identifies the media carried by a sample buffer.
type Kind uint8

const (
	// KindVideo marks an encoded or raw video frame.
	KindVideo Kind = iota + 1
	// KindAudio marks an encoded or raw audio frame.
	KindAudio
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// SampleBuffer is one timestamped chunk of media produced by the hardware.
//
// PTS is the presentation timestamp on the device clock. Only the
// differences between timestamps are meaningful; the movie writer rebases
// them onto the first accepted video frame.
type SampleBuffer struct {
	Kind     Kind
	PTS      time.Duration
	Data     []byte
	Keyframe bool
}

// IsVideo reports whether the buffer carries video.
func (b SampleBuffer) IsVideo() bool { return b.Kind == KindVideo }

// IsAudio reports whether the buffer carries audio.
func (b SampleBuffer) IsAudio() bool { return b.Kind == KindAudio }
