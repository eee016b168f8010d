package movie

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Resolution is one of the discrete capture sizes the encoder accepts.
type Resolution struct {
	Width  int
	Height int
}

// String returns a WxH representation of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

var supportedResolutions = []Resolution{
	{Width: 1920, Height: 1080},
	{Width: 1280, Height: 720},
	{Width: 960, Height: 540},
}

// SupportedResolutions returns the resolutions a recording may use.
func SupportedResolutions() []Resolution {
	out := make([]Resolution, len(supportedResolutions))
	copy(out, supportedResolutions)
	return out
}

// IsSupportedResolution reports whether width x height is a supported size.
func IsSupportedResolution(width, height int) bool {
	for _, r := range supportedResolutions {
		if r.Width == width && r.Height == height {
			return true
		}
	}
	return false
}

var supportedSampleRates = []uint32{8000, 12000, 16000, 24000, 48000}

// Options controls the container and encoder settings of a Writer.
type Options struct {
	// VideoCodecID is the Matroska codec ID of the video track.
	VideoCodecID string
	// AudioCodecID is the Matroska codec ID of the audio track.
	AudioCodecID string
	// AudioSampleRate is the audio sampling frequency in Hz.
	AudioSampleRate uint32
	// AudioChannels is the number of audio channels (1 or 2).
	AudioChannels int
	// MinFreeBytes is the free space Begin requires on the output volume.
	MinFreeBytes uint64
	// FilePrefix prefixes every generated file name.
	FilePrefix string
	// FinalizeTimeout bounds how long End waits for the container to flush.
	FinalizeTimeout time.Duration
	// OpenFile creates the output file at a path that must not exist yet.
	// Nil uses CreateExclusive.
	OpenFile func(path string) (File, error)
}

// File is the output a Writer seals. *os.File satisfies it.
type File interface {
	io.Writer
	Sync() error
	Close() error
}

// CreateExclusive creates path for writing and fails if it already exists.
func CreateExclusive(path string) (File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// DefaultOptions returns VP8 video with 48kHz mono Opus audio.
func DefaultOptions() Options {
	return Options{
		VideoCodecID:    "V_VP8",
		AudioCodecID:    "A_OPUS",
		AudioSampleRate: 48000,
		AudioChannels:   1,
		MinFreeBytes:    64 << 20,
		FilePrefix:      "movie",
		FinalizeTimeout: 5 * time.Second,
	}
}

func validateSettings(outputDir string, width, height int, audio bool, opts Options) error {
	if outputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if !IsSupportedResolution(width, height) {
		return fmt.Errorf("unsupported resolution %dx%d", width, height)
	}
	if opts.VideoCodecID == "" {
		return fmt.Errorf("video codec ID cannot be empty")
	}
	if !audio {
		return nil
	}
	if opts.AudioCodecID == "" {
		return fmt.Errorf("audio codec ID cannot be empty")
	}
	if opts.AudioChannels < 1 || opts.AudioChannels > 2 {
		return fmt.Errorf("unsupported audio channel count %d", opts.AudioChannels)
	}
	for _, rate := range supportedSampleRates {
		if rate == opts.AudioSampleRate {
			return nil
		}
	}
	return fmt.Errorf("unsupported audio sample rate %d", opts.AudioSampleRate)
}
