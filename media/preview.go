package media

import "sync"

// Preview is the live-preview handle exposed by the camcorder.
//
// It sees every buffer the device delivers, recording or not, and keeps a
// private copy of the latest video frame plus the audio level. Renderers poll
// it; nothing here feeds back into recording.
type Preview struct {
	mu         sync.RWMutex
	frame      SampleBuffer
	hasFrame   bool
	videoCount uint64
	audioCount uint64
	meter      *AudioMeter
}

// NewPreview creates a preview handle. meter may be nil when audio levels
// are not wanted.
func NewPreview(meter *AudioMeter) *Preview {
	return &Preview{meter: meter}
}

// Update records buf. Video data is copied; audio is metered.
func (p *Preview) Update(buf SampleBuffer) {
	switch buf.Kind {
	case KindVideo:
		data := make([]byte, len(buf.Data))
		copy(data, buf.Data)
		p.mu.Lock()
		p.frame = SampleBuffer{Kind: KindVideo, PTS: buf.PTS, Data: data, Keyframe: buf.Keyframe}
		p.hasFrame = true
		p.videoCount++
		p.mu.Unlock()
	case KindAudio:
		p.mu.Lock()
		p.audioCount++
		meter := p.meter
		p.mu.Unlock()
		if meter != nil && len(buf.Data) > 0 {
			_ = meter.Feed(buf.Data)
		}
	}
}

// LatestFrame returns a copy of the most recent video frame.
func (p *Preview) LatestFrame() (SampleBuffer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasFrame {
		return SampleBuffer{}, false
	}
	frame := p.frame
	frame.Data = append([]byte(nil), p.frame.Data...)
	return frame, true
}

// AudioLevel returns the current audio peak level in dBFS.
func (p *Preview) AudioLevel() float64 {
	p.mu.RLock()
	meter := p.meter
	p.mu.RUnlock()
	if meter == nil {
		return SilenceLevel
	}
	return meter.Level()
}

// Counts returns how many video and audio buffers the preview has seen.
func (p *Preview) Counts() (video, audio uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.videoCount, p.audioCount
}

// Reset clears the preview, e.g. when the camera turns off.
func (p *Preview) Reset() {
	p.mu.Lock()
	p.frame = SampleBuffer{}
	p.hasFrame = false
	meter := p.meter
	p.mu.Unlock()
	if meter != nil {
		meter.Reset()
	}
}
