package media

import (
	"fmt"
	"math"
	"sync"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// SilenceLevel is the level reported before any audio was metered and for
// digital silence, in dBFS.
const SilenceLevel = -120.0

// opusOutputSize holds 40ms of 48kHz 16-bit mono PCM, the largest frame the
// meter decodes.
const opusOutputSize = 1920 * 2

// AudioMeter tracks the peak level of an Opus audio stream for live preview.
//
// The meter decodes each packet with the pure Go pion/opus decoder. Packets
// the decoder cannot handle leave the previous level in place and are only
// counted; metering never affects what gets recorded.
type AudioMeter struct {
	mu           sync.Mutex
	decoder      opus.Decoder
	output       []byte
	level        float64
	packets      uint64
	decodeErrors uint64
}

// NewOpusAudioMeter creates a meter for Opus packets.
func NewOpusAudioMeter() *AudioMeter {
	return &AudioMeter{
		decoder: opus.NewDecoder(),
		output:  make([]byte, opusOutputSize),
		level:   SilenceLevel,
	}
}

// Feed decodes one Opus packet and updates the level.
func (m *AudioMeter) Feed(packet []byte) error {
	if len(packet) == 0 {
		return fmt.Errorf("empty audio packet")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.packets++
	for i := range m.output {
		m.output[i] = 0
	}
	bandwidth, isStereo, err := m.decoder.Decode(packet, m.output)
	if err != nil {
		m.decodeErrors++
		logrus.WithFields(logrus.Fields{
			"function":    "AudioMeter.Feed",
			"packet_size": len(packet),
			"error":       err.Error(),
		}).Debug("Opus decode failed, keeping previous level")
		return fmt.Errorf("opus decode failed: %w", err)
	}

	pcm := make([]int16, len(m.output)/2)
	for i := range pcm {
		pcm[i] = int16(m.output[i*2]) | int16(m.output[i*2+1])<<8
	}
	m.level = PeakLevel(pcm)

	logrus.WithFields(logrus.Fields{
		"function":  "AudioMeter.Feed",
		"bandwidth": bandwidth.String(),
		"is_stereo": isStereo,
		"level_db":  m.level,
	}).Debug("Metered audio packet")

	return nil
}

// Level returns the most recent peak level in dBFS.
func (m *AudioMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Stats returns how many packets were fed and how many failed to decode.
func (m *AudioMeter) Stats() (packets, decodeErrors uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.packets, m.decodeErrors
}

// Reset returns the meter to silence.
func (m *AudioMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = SilenceLevel
}

// PeakLevel returns the peak absolute sample of pcm in dBFS, floored at
// SilenceLevel.
func PeakLevel(pcm []int16) float64 {
	peak := 0
	for _, s := range pcm {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return SilenceLevel
	}
	db := 20 * math.Log10(float64(peak)/32768.0)
	if db < SilenceLevel {
		return SilenceLevel
	}
	return db
}
