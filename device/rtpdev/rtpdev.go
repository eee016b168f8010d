// Package rtpdev implements a capture device fed by local RTP streams.
//
// Camera modules and capture daemons commonly expose their encoder output as
// RTP over UDP on the loopback interface. A Device listens on one address per
// camera position and optionally one for the microphone, depacketizes what
// arrives and hands complete sample buffers to the camcorder. VP8 payload
// descriptors are stripped so that the recorded frames are plain VP8.
package rtpdev

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/media"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/sirupsen/logrus"
)

// Video payload formats understood by the device.
const (
	FormatVP8 = "VP8"
	FormatRaw = "raw"
)

// ListenFunc opens a packet listener.
type ListenFunc func(network, address string) (net.PacketConn, error)

// Options configures where the device listens.
type Options struct {
	// Cameras maps each available camera to its UDP listen address.
	Cameras map[device.Position]string
	// Microphone is the UDP listen address of the audio stream. Empty means
	// the device has no microphone.
	Microphone string
	// VideoFormat is FormatVP8 or FormatRaw.
	VideoFormat    string
	VideoClockRate uint32
	AudioClockRate uint32
	// ReadBufferSize is the largest datagram accepted.
	ReadBufferSize int
	// Listen overrides net.ListenPacket.
	Listen ListenFunc
}

// DefaultOptions returns VP8 video at 90kHz and Opus audio at 48kHz with no
// cameras configured.
func DefaultOptions() Options {
	return Options{
		Cameras:        map[device.Position]string{},
		VideoFormat:    FormatVP8,
		VideoClockRate: 90000,
		AudioClockRate: 48000,
		ReadBufferSize: 1500,
		Listen:         net.ListenPacket,
	}
}

// Device is a device.Device reading RTP from UDP sockets.
type Device struct {
	opts Options

	mu    sync.Mutex
	cfg   device.Config
	open  bool
	video *stream
	audio *stream
	stop  chan struct{}
	wg    sync.WaitGroup
}

type stream struct {
	kind  media.Kind
	conn  net.PacketConn
	depkt *media.Depacketizer
}

// New creates an RTP-backed device.
func New(opts Options) (*Device, error) {
	defaults := DefaultOptions()
	if opts.VideoFormat == "" {
		opts.VideoFormat = defaults.VideoFormat
	}
	if opts.VideoFormat != FormatVP8 && opts.VideoFormat != FormatRaw {
		return nil, fmt.Errorf("unsupported video format %q", opts.VideoFormat)
	}
	if opts.VideoClockRate == 0 {
		opts.VideoClockRate = defaults.VideoClockRate
	}
	if opts.AudioClockRate == 0 {
		opts.AudioClockRate = defaults.AudioClockRate
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = defaults.ReadBufferSize
	}
	if opts.Listen == nil {
		opts.Listen = defaults.Listen
	}
	if opts.Cameras == nil {
		opts.Cameras = map[device.Position]string{}
	}

	return &Device{opts: opts}, nil
}

// Open implements device.Device.
func (d *Device) Open(cfg device.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return fmt.Errorf("%w: session already open", device.ErrAddVideoInput)
	}

	pos := cfg.Position.Resolve()
	videoAddr, ok := d.opts.Cameras[pos]
	if !ok || videoAddr == "" {
		return fmt.Errorf("%w: no %s camera configured", device.ErrVideoDeviceNotFound, pos)
	}
	if cfg.Audio && d.opts.Microphone == "" {
		return device.ErrAudioDeviceNotFound
	}

	video, err := d.openStream(media.KindVideo, videoAddr, d.opts.VideoClockRate)
	if err != nil {
		return err
	}
	if d.opts.VideoFormat == FormatVP8 {
		video.depkt.SetKeyframeDetector(media.IsVP8Keyframe)
	}

	var audio *stream
	if cfg.Audio {
		audio, err = d.openStream(media.KindAudio, d.opts.Microphone, d.opts.AudioClockRate)
		if err != nil {
			_ = video.conn.Close()
			return err
		}
	}

	d.cfg = device.Config{Position: pos, Audio: cfg.Audio}
	d.video = video
	d.audio = audio
	d.open = true

	logrus.WithFields(logrus.Fields{
		"function":   "rtpdev.Device.Open",
		"position":   pos.String(),
		"video_addr": video.conn.LocalAddr().String(),
		"audio":      cfg.Audio,
	}).Info("RTP capture session opened")

	return nil
}

func (d *Device) openStream(kind media.Kind, addr string, clockRate uint32) (*stream, error) {
	inputErr, outputErr := device.ErrAddVideoInput, device.ErrAddVideoOutput
	if kind == media.KindAudio {
		inputErr, outputErr = device.ErrAddAudioInput, device.ErrAddAudioOutput
	}

	depkt, err := media.NewDepacketizer(kind, clockRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", outputErr, err)
	}
	conn, err := d.opts.Listen("udp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "rtpdev.Device.openStream",
			"kind":     kind.String(),
			"addr":     addr,
			"error":    err.Error(),
		}).Error("Failed to listen for RTP")
		return nil, fmt.Errorf("%w: %w", inputErr, err)
	}
	return &stream{kind: kind, conn: conn, depkt: depkt}, nil
}

// Start implements device.Device.
func (d *Device) Start(h device.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return device.ErrNotOpen
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", device.ErrAddVideoOutput)
	}
	if d.stop != nil {
		return nil
	}

	streams := make([]*stream, 0, 2)
	for _, s := range []*stream{d.video, d.audio} {
		if s == nil {
			continue
		}
		s.depkt.Reset()
		if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
			return fmt.Errorf("%w: %w", device.ErrAddVideoOutput, err)
		}
		streams = append(streams, s)
	}

	d.stop = make(chan struct{})
	for _, s := range streams {
		d.wg.Add(1)
		go d.read(s, h, d.stop)
	}
	return nil
}

func (d *Device) read(s *stream, h device.Handler, stop <-chan struct{}) {
	defer d.wg.Done()

	buf := make([]byte, d.opts.ReadBufferSize)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				logrus.WithFields(logrus.Fields{
					"function": "rtpdev.Device.read",
					"kind":     s.kind.String(),
					"error":    err.Error(),
				}).Error("RTP read failed, stream stopped")
			}
			return
		}

		select {
		case <-stop:
			return
		default:
		}

		d.handlePacket(s, h, buf[:n])
	}
}

func (d *Device) handlePacket(s *stream, h device.Handler, raw []byte) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "rtpdev.Device.handlePacket",
			"kind":     s.kind.String(),
			"size":     len(raw),
			"error":    err.Error(),
		}).Debug("Ignoring malformed RTP packet")
		return
	}

	if s.kind == media.KindVideo && d.opts.VideoFormat == FormatVP8 {
		var vp8 codecs.VP8Packet
		payload, err := vp8.Unmarshal(pkt.Payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "rtpdev.Device.handlePacket",
				"sequence": pkt.SequenceNumber,
				"error":    err.Error(),
			}).Debug("Ignoring malformed VP8 payload")
			return
		}
		pkt.Payload = payload
	}

	buf, ok, err := s.depkt.Push(pkt)
	if errors.Is(err, media.ErrSSRCChanged) {
		h.HandleConfigurationChange(device.Change{
			Reason: "stream restarted",
			Detail: map[string]string{
				"kind": s.kind.String(),
				"ssrc": strconv.FormatUint(uint64(pkt.SSRC), 10),
			},
		})
	} else if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "rtpdev.Device.handlePacket",
			"kind":     s.kind.String(),
			"error":    err.Error(),
		}).Debug("Depacketizer rejected packet")
		return
	}
	if ok {
		h.HandleSampleBuffer(buf)
	}
}

// Stop implements device.Device. Readers are interrupted with a read deadline
// so that the sockets stay usable for a later Start.
func (d *Device) Stop() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	streams := []*stream{d.video, d.audio}
	d.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	for _, s := range streams {
		if s != nil {
			_ = s.conn.SetReadDeadline(time.Now())
		}
	}
	d.wg.Wait()
	return nil
}

// Close implements device.Device.
func (d *Device) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}

	var errs []error
	for _, s := range []*stream{d.video, d.audio} {
		if s == nil {
			continue
		}
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	d.video, d.audio = nil, nil
	d.open = false

	logrus.WithFields(logrus.Fields{
		"function": "rtpdev.Device.Close",
	}).Info("RTP capture session closed")

	return errors.Join(errs...)
}

// SupportsFocus implements device.Device. RTP streams carry no lens control.
func (d *Device) SupportsFocus() bool { return false }

// Focus implements device.Device.
func (d *Device) Focus(device.FocusMode, device.Point) error {
	return device.ErrFocusUnsupported
}

// Config returns the configuration of the open session.
func (d *Device) Config() device.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// LocalAddr returns the bound address of the open stream of the given kind.
func (d *Device) LocalAddr(kind media.Kind) (net.Addr, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.video
	if kind == media.KindAudio {
		s = d.audio
	}
	if s == nil {
		return nil, false
	}
	return s.conn.LocalAddr(), true
}

// OptionsFromEnv reads listen addresses from CAMCORDER_RTP_FRONT,
// CAMCORDER_RTP_BACK and CAMCORDER_RTP_MIC on top of DefaultOptions.
func OptionsFromEnv() Options {
	opts := DefaultOptions()
	if addr := os.Getenv("CAMCORDER_RTP_FRONT"); addr != "" {
		opts.Cameras[device.PositionFront] = addr
	}
	if addr := os.Getenv("CAMCORDER_RTP_BACK"); addr != "" {
		opts.Cameras[device.PositionBack] = addr
	}
	opts.Microphone = os.Getenv("CAMCORDER_RTP_MIC")
	if format := os.Getenv("CAMCORDER_RTP_VIDEO_FORMAT"); format != "" {
		opts.VideoFormat = format
	}
	return opts
}
