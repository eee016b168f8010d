package sim

import (
	"time"

	"github.com/opd-ai/camcorder/media"
	"github.com/sirupsen/logrus"
)

// vp8KeyframeHeader is the start code every VP8 keyframe carries after its
// three byte frame tag.
var vp8KeyframeHeader = []byte{0x9d, 0x01, 0x2a}

// silentOpusFrame is a single-frame 20ms SILK packet.
var silentOpusFrame = []byte{0x08, 0x00}

// generate produces a synthetic stream on the hardware clock until stop is
// closed.
func (d *Device) generate(stop <-chan struct{}, done chan<- struct{}, audio bool) {
	defer close(done)

	start := time.Now()
	video := time.NewTicker(d.opts.FrameInterval)
	defer video.Stop()

	var sound <-chan time.Time
	if audio {
		t := time.NewTicker(d.opts.AudioInterval)
		defer t.Stop()
		sound = t.C
	}

	logrus.WithFields(logrus.Fields{
		"function":       "sim.Device.generate",
		"frame_interval": d.opts.FrameInterval,
		"audio":          audio,
	}).Debug("Synthetic stream started")

	var frames int
	for {
		select {
		case <-stop:
			return
		case now := <-video.C:
			d.Emit(SyntheticVideoFrame(now.Sub(start), frames%d.opts.KeyframeEvery == 0))
			frames++
		case now := <-sound:
			d.Emit(SyntheticAudioFrame(now.Sub(start)))
		}
	}
}

// SyntheticVideoFrame builds a small VP8-shaped video buffer.
func SyntheticVideoFrame(pts time.Duration, keyframe bool) media.SampleBuffer {
	data := make([]byte, 0, 16)
	if keyframe {
		data = append(data, 0x10, 0x02, 0x00)
		data = append(data, vp8KeyframeHeader...)
	} else {
		data = append(data, 0x11, 0x02, 0x00)
	}
	ms := pts.Milliseconds()
	data = append(data, byte(ms>>24), byte(ms>>16), byte(ms>>8), byte(ms))
	return media.SampleBuffer{Kind: media.KindVideo, PTS: pts, Data: data, Keyframe: keyframe}
}

// SyntheticAudioFrame builds a silent Opus audio buffer.
func SyntheticAudioFrame(pts time.Duration) media.SampleBuffer {
	data := make([]byte, len(silentOpusFrame))
	copy(data, silentOpusFrame)
	return media.SampleBuffer{Kind: media.KindAudio, PTS: pts, Data: data, Keyframe: true}
}
