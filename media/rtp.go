package media

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// ErrSSRCChanged is returned by Depacketizer.Push when a packet carries a new
// SSRC. The depacketizer has already reset itself and treated the packet as
// the first of a new stream, so the returned buffer (if any) is valid.
var ErrSSRCChanged = errors.New("rtp stream SSRC changed")

// KeyframeDetector inspects the first payload of a video frame and reports
// whether the frame is a sync point.
type KeyframeDetector func(payload []byte) bool

// Depacketizer turns the RTP packets of a single stream into sample buffers.
//
// Audio packets map one-to-one onto buffers. Video packets sharing an RTP
// timestamp are concatenated until the marker bit closes the frame; a frame
// with a sequence gap is discarded rather than delivered torn. RTP timestamps
// are unwrapped past 32 bits and converted to durations relative to the first
// packet of the stream.
type Depacketizer struct {
	mu        sync.Mutex
	kind      Kind
	clockRate uint32
	keyframe  KeyframeDetector

	ssrc       uint32
	hasSSRC    bool
	lastSeq    uint16
	hasLastSeq bool

	baseTS  int64
	lastTS  uint32
	cycles  int64
	hasBase bool

	frameTS    uint32
	frame      []byte
	frameFirst []byte
	assembling bool
	corrupt    bool
}

// NewDepacketizer creates a depacketizer for one stream of the given kind.
func NewDepacketizer(kind Kind, clockRate uint32) (*Depacketizer, error) {
	if kind != KindVideo && kind != KindAudio {
		return nil, fmt.Errorf("unsupported media kind: %s", kind)
	}
	if clockRate == 0 {
		return nil, fmt.Errorf("clock rate cannot be zero")
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewDepacketizer",
		"kind":       kind.String(),
		"clock_rate": clockRate,
	}).Debug("Creating RTP depacketizer")

	return &Depacketizer{kind: kind, clockRate: clockRate}, nil
}

// SetKeyframeDetector installs the detector used to flag video keyframes.
// Without a detector every video frame is reported as a keyframe.
func (d *Depacketizer) SetKeyframeDetector(fn KeyframeDetector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keyframe = fn
}

// Reset forgets the current stream.
func (d *Depacketizer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Depacketizer) resetLocked() {
	d.hasSSRC = false
	d.hasLastSeq = false
	d.hasBase = false
	d.cycles = 0
	d.dropFrameLocked()
}

func (d *Depacketizer) dropFrameLocked() {
	d.frame = nil
	d.frameFirst = nil
	d.assembling = false
	d.corrupt = false
}

// PushBytes unmarshals raw into an RTP packet and pushes it.
func (d *Depacketizer) PushBytes(raw []byte) (SampleBuffer, bool, error) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(raw); err != nil {
		return SampleBuffer{}, false, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	return d.Push(pkt)
}

// Push consumes one packet. It returns a complete sample buffer and true once
// a frame is finished.
func (d *Depacketizer) Push(pkt *rtp.Packet) (SampleBuffer, bool, error) {
	if pkt == nil {
		return SampleBuffer{}, false, fmt.Errorf("packet cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var restarted error
	if !d.hasSSRC {
		d.ssrc = pkt.SSRC
		d.hasSSRC = true
	} else if pkt.SSRC != d.ssrc {
		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.Push",
			"kind":     d.kind.String(),
			"old_ssrc": d.ssrc,
			"new_ssrc": pkt.SSRC,
		}).Warn("RTP stream restarted with a new SSRC")
		d.resetLocked()
		d.ssrc = pkt.SSRC
		d.hasSSRC = true
		restarted = ErrSSRCChanged
	}

	gap := false
	if d.hasLastSeq && pkt.SequenceNumber != d.lastSeq+1 {
		gap = true
		logrus.WithFields(logrus.Fields{
			"function":          "Depacketizer.Push",
			"kind":              d.kind.String(),
			"expected_sequence": d.lastSeq + 1,
			"received_sequence": pkt.SequenceNumber,
		}).Debug("Sequence gap detected in RTP stream")
	}
	d.lastSeq = pkt.SequenceNumber
	d.hasLastSeq = true

	if len(pkt.Payload) == 0 {
		return SampleBuffer{}, false, restarted
	}

	pts := d.ptsLocked(pkt.Timestamp)

	if d.kind == KindAudio {
		data := make([]byte, len(pkt.Payload))
		copy(data, pkt.Payload)
		return SampleBuffer{Kind: KindAudio, PTS: pts, Data: data, Keyframe: true}, true, restarted
	}

	if d.assembling && pkt.Timestamp != d.frameTS {
		logrus.WithFields(logrus.Fields{
			"function":  "Depacketizer.Push",
			"timestamp": d.frameTS,
		}).Debug("Dropping video frame without marker")
		d.dropFrameLocked()
	}
	if !d.assembling {
		d.assembling = true
		d.frameTS = pkt.Timestamp
		d.frameFirst = append([]byte(nil), pkt.Payload[:min(len(pkt.Payload), 16)]...)
	} else if gap {
		d.corrupt = true
	}
	d.frame = append(d.frame, pkt.Payload...)

	if !pkt.Marker {
		return SampleBuffer{}, false, restarted
	}

	defer d.dropFrameLocked()
	if d.corrupt {
		logrus.WithFields(logrus.Fields{
			"function":  "Depacketizer.Push",
			"timestamp": d.frameTS,
		}).Warn("Discarding video frame with missing packets")
		return SampleBuffer{}, false, restarted
	}

	keyframe := true
	if d.keyframe != nil {
		keyframe = d.keyframe(d.frameFirst)
	}
	return SampleBuffer{Kind: KindVideo, PTS: pts, Data: d.frame, Keyframe: keyframe}, true, restarted
}

// ptsLocked unwraps ts and converts it to a duration since the first packet.
func (d *Depacketizer) ptsLocked(ts uint32) time.Duration {
	if !d.hasBase {
		d.hasBase = true
		d.baseTS = int64(ts)
		d.lastTS = ts
		d.cycles = 0
	}

	cycles := d.cycles
	switch {
	case ts < d.lastTS && d.lastTS-ts > 1<<31:
		cycles++
		d.cycles = cycles
		d.lastTS = ts
	case ts > d.lastTS && ts-d.lastTS > 1<<31:
		// Late packet from before the most recent wrap.
		cycles--
	case ts > d.lastTS:
		d.lastTS = ts
	}

	ext := cycles<<32 + int64(ts)
	ticks := ext - d.baseTS
	rate := int64(d.clockRate)
	return time.Duration(ticks/rate)*time.Second + time.Duration(ticks%rate)*time.Second/time.Duration(rate)
}

// IsVP8Keyframe reports whether frame starts a VP8 keyframe. The P bit of
// the VP8 frame tag is zero on keyframes.
func IsVP8Keyframe(frame []byte) bool {
	return len(frame) > 0 && frame[0]&0x01 == 0
}
