package media

import (
	"errors"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packet(ssrc uint32, seq uint16, ts uint32, marker bool, payload ...byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           ssrc,
			Marker:         marker,
		},
		Payload: payload,
	}
}

func TestNewDepacketizerValidation(t *testing.T) {
	_, err := NewDepacketizer(Kind(0), 90000)
	assert.Error(t, err)

	_, err = NewDepacketizer(KindVideo, 0)
	assert.Error(t, err)

	d, err := NewDepacketizer(KindAudio, 48000)
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestDepacketizerAudioOnePacketPerBuffer(t *testing.T) {
	d, err := NewDepacketizer(KindAudio, 48000)
	require.NoError(t, err)

	buf, ok, err := d.Push(packet(1, 10, 1000, false, 0xAA))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindAudio, buf.Kind)
	assert.Equal(t, time.Duration(0), buf.PTS)
	assert.Equal(t, []byte{0xAA}, buf.Data)

	buf, ok, err = d.Push(packet(1, 11, 1000+960, false, 0xBB))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, buf.PTS)
}

func TestDepacketizerVideoFrameAssembly(t *testing.T) {
	d, err := NewDepacketizer(KindVideo, 90000)
	require.NoError(t, err)

	_, ok, err := d.Push(packet(7, 1, 3000, false, 1, 2))
	require.NoError(t, err)
	assert.False(t, ok, "frame incomplete until marker")

	buf, ok, err := d.Push(packet(7, 2, 3000, true, 3))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, buf.Data)
	assert.True(t, buf.Keyframe)
	assert.Equal(t, time.Duration(0), buf.PTS)

	buf, ok, err = d.Push(packet(7, 3, 3000+2970, true, 4))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 33*time.Millisecond, buf.PTS)
}

func TestDepacketizerDropsFrameWithGap(t *testing.T) {
	d, err := NewDepacketizer(KindVideo, 90000)
	require.NoError(t, err)

	_, _, err = d.Push(packet(7, 1, 3000, false, 1))
	require.NoError(t, err)
	_, ok, err := d.Push(packet(7, 3, 3000, true, 3))
	require.NoError(t, err)
	assert.False(t, ok, "torn frame must be dropped")

	buf, ok, err := d.Push(packet(7, 4, 6000, true, 9))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{9}, buf.Data)
}

func TestDepacketizerKeyframeDetector(t *testing.T) {
	d, err := NewDepacketizer(KindVideo, 90000)
	require.NoError(t, err)
	d.SetKeyframeDetector(func(payload []byte) bool { return payload[0] == 0x10 })

	buf, ok, err := d.Push(packet(1, 1, 0, true, 0x11))
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, buf.Keyframe)

	buf, ok, err = d.Push(packet(1, 2, 3000, true, 0x10))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, buf.Keyframe)
}

func TestDepacketizerSSRCChangeRestartsStream(t *testing.T) {
	d, err := NewDepacketizer(KindAudio, 48000)
	require.NoError(t, err)

	_, _, err = d.Push(packet(1, 1, 48000, false, 1))
	require.NoError(t, err)

	buf, ok, err := d.Push(packet(2, 500, 9999, false, 2))
	assert.True(t, errors.Is(err, ErrSSRCChanged))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), buf.PTS, "new stream restarts the timeline")
}

func TestDepacketizerTimestampWrap(t *testing.T) {
	d, err := NewDepacketizer(KindAudio, 48000)
	require.NoError(t, err)

	start := uint32(0xFFFFFFFF - 479)
	_, _, err = d.Push(packet(1, 1, start, false, 1))
	require.NoError(t, err)

	buf, ok, err := d.Push(packet(1, 2, start+960, false, 2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, buf.PTS)
}

func TestDepacketizerPushBytes(t *testing.T) {
	d, err := NewDepacketizer(KindAudio, 48000)
	require.NoError(t, err)

	raw, err := packet(5, 1, 0, false, 0x01, 0x02).Marshal()
	require.NoError(t, err)

	buf, ok, err := d.PushBytes(raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, buf.Data)

	_, _, err = d.PushBytes([]byte{0x00})
	assert.Error(t, err)
}

func TestIsVP8Keyframe(t *testing.T) {
	assert.True(t, IsVP8Keyframe([]byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}))
	assert.False(t, IsVP8Keyframe([]byte{0x11, 0x02, 0x00}))
	assert.False(t, IsVP8Keyframe(nil))
}
