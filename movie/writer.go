// Package movie writes captured sample buffers into a sealed WebM file.
//
// A Writer owns one output file with a video track and an optional audio
// track. The first video buffer after Begin fixes the time origin; every
// buffer is written relative to it, so a recording always opens on a video
// frame at timestamp zero and audio never precedes it.
//
//	w, err := movie.New(dir, 1280, 720, true, movie.DefaultOptions())
//	if err != nil {
//	    return err // wraps ErrInvalidOutputSettings
//	}
//	if err := w.Begin(); err != nil {
//	    return err // wraps ErrWriterInitializationFailed
//	}
//	w.ProcessVideoSampleBuffer(frame)
//	w.ProcessAudioSampleBuffer(packet)
//	result, err := w.End()
//
// A Writer is meant to be driven from one goroutine; its methods are
// nevertheless safe for concurrent use.
package movie

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/google/uuid"
	"github.com/opd-ai/camcorder/media"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

const (
	videoTrackNumber = 1
	audioTrackNumber = 2

	trackTypeVideo = 1
	trackTypeAudio = 2
)

// Result describes a sealed recording.
type Result struct {
	Path          string
	Duration      time.Duration
	VideoFrames   uint64
	AudioFrames   uint64
	DroppedFrames uint64
	Size          int64
	// Digest is the hex BLAKE2b-256 of the sealed file.
	Digest string
}

// Writer multiplexes video and audio sample buffers into one WebM file.
type Writer struct {
	mu sync.Mutex

	outputDir string
	width     int
	height    int
	audio     bool
	opts      Options

	path  string
	file  *sealingFile
	video webm.BlockWriteCloser
	sound webm.BlockWriteCloser

	begun   bool
	started bool
	ended   bool
	err     error

	origin    time.Duration
	lastVideo time.Duration
	lastAudio time.Duration
	hasAudio  bool

	videoFrames uint64
	audioFrames uint64
	dropped     uint64
}

// New validates the output settings and returns an idle writer.
//
// It fails with ErrInvalidOutputSettings when the resolution is not one of
// SupportedResolutions, a codec ID is missing, or audio is enabled with an
// unsupported sample rate or channel count.
func New(outputDir string, width, height int, audio bool, opts Options) (*Writer, error) {
	if err := validateSettings(outputDir, width, height, audio, opts); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "movie.New",
			"width":    width,
			"height":   height,
			"audio":    audio,
			"error":    err.Error(),
		}).Warn("Rejected output settings")
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutputSettings, err)
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = DefaultOptions().FinalizeTimeout
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = DefaultOptions().FilePrefix
	}

	return &Writer{
		outputDir: outputDir,
		width:     width,
		height:    height,
		audio:     audio,
		opts:      opts,
	}, nil
}

// Begin opens a uniquely named file in the output directory and starts the
// container. On failure nothing is left on disk and the error wraps
// ErrWriterInitializationFailed.
func (w *Writer) Begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.begun || w.ended {
		return fmt.Errorf("%w: writer already begun", ErrWriterInitializationFailed)
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return w.initFailed(err)
	}
	if err := checkFreeSpace(w.outputDir, w.opts.MinFreeBytes); err != nil {
		return w.initFailed(err)
	}

	id := uuid.New()
	path := filepath.Join(w.outputDir, fmt.Sprintf("%s-%s.webm", w.opts.FilePrefix, id.String()))
	open := w.opts.OpenFile
	if open == nil {
		open = CreateExclusive
	}
	f, err := open(path)
	if err != nil {
		return w.initFailed(err)
	}

	file := newSealingFile(f)
	writers, err := webm.NewSimpleBlockWriter(file, w.trackEntries(id),
		mkvcore.WithOnErrorHandler(func(err error) {
			logrus.WithFields(logrus.Fields{
				"function": "Writer.Begin",
				"path":     path,
				"error":    err.Error(),
			}).Warn("Container skipped a frame")
		}),
		mkvcore.WithOnFatalHandler(file.fail),
	)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return w.initFailed(err)
	}

	w.path = path
	w.file = file
	w.video = writers[0]
	if w.audio {
		w.sound = writers[1]
	}
	w.begun = true

	logrus.WithFields(logrus.Fields{
		"function": "Writer.Begin",
		"path":     path,
		"width":    w.width,
		"height":   w.height,
		"audio":    w.audio,
	}).Info("Movie writer started")

	return nil
}

func (w *Writer) initFailed(err error) error {
	logrus.WithFields(logrus.Fields{
		"function":   "Writer.Begin",
		"output_dir": w.outputDir,
		"error":      err.Error(),
	}).Error("Failed to open movie container")
	return fmt.Errorf("%w: %w", ErrWriterInitializationFailed, err)
}

func (w *Writer) trackEntries(id uuid.UUID) []webm.TrackEntry {
	uid := binary.BigEndian.Uint64(id[:8])
	tracks := []webm.TrackEntry{{
		Name:        "Video",
		TrackNumber: videoTrackNumber,
		TrackUID:    uid | 1,
		CodecID:     w.opts.VideoCodecID,
		TrackType:   trackTypeVideo,
		Video: &webm.Video{
			PixelWidth:  uint64(w.width),
			PixelHeight: uint64(w.height),
		},
	}}
	if w.audio {
		tracks = append(tracks, webm.TrackEntry{
			Name:        "Audio",
			TrackNumber: audioTrackNumber,
			TrackUID:    binary.BigEndian.Uint64(id[8:]) | 1,
			CodecID:     w.opts.AudioCodecID,
			TrackType:   trackTypeAudio,
			Audio: &webm.Audio{
				SamplingFrequency: float64(w.opts.AudioSampleRate),
				Channels:          uint64(w.opts.AudioChannels),
			},
		})
	}
	return tracks
}

// ProcessVideoSampleBuffer appends a video frame. The first frame after
// Begin becomes the time origin. Frames whose timestamp does not advance
// past the last accepted video frame are dropped. It reports whether the
// frame was appended.
func (w *Writer) ProcessVideoSampleBuffer(buf media.SampleBuffer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.writableLocked() {
		return false
	}

	if !w.started {
		w.origin = buf.PTS
		w.started = true
		logrus.WithFields(logrus.Fields{
			"function": "Writer.ProcessVideoSampleBuffer",
			"origin":   buf.PTS,
		}).Debug("Time origin established")
	} else if buf.PTS <= w.lastVideo {
		w.dropped++
		logrus.WithFields(logrus.Fields{
			"function":  "Writer.ProcessVideoSampleBuffer",
			"pts":       buf.PTS,
			"watermark": w.lastVideo,
		}).Debug("Dropping out-of-order video buffer")
		return false
	}

	if !w.appendLocked(w.video, buf) {
		return false
	}
	w.lastVideo = buf.PTS
	w.videoFrames++
	return true
}

// ProcessAudioSampleBuffer appends an audio frame once a video frame has set
// the time origin. Without audio enabled, before the origin, or when the
// timestamp does not advance, the buffer is discarded. It reports whether
// the frame was appended.
func (w *Writer) ProcessAudioSampleBuffer(buf media.SampleBuffer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.audio || !w.writableLocked() {
		return false
	}
	if !w.started || buf.PTS < w.origin {
		w.dropped++
		return false
	}
	if w.hasAudio && buf.PTS <= w.lastAudio {
		w.dropped++
		logrus.WithFields(logrus.Fields{
			"function":  "Writer.ProcessAudioSampleBuffer",
			"pts":       buf.PTS,
			"watermark": w.lastAudio,
		}).Debug("Dropping out-of-order audio buffer")
		return false
	}

	if !w.appendLocked(w.sound, buf) {
		return false
	}
	w.lastAudio = buf.PTS
	w.hasAudio = true
	w.audioFrames++
	return true
}

func (w *Writer) writableLocked() bool {
	if !w.begun || w.ended || w.err != nil {
		w.dropped++
		return false
	}
	return true
}

func (w *Writer) appendLocked(track webm.BlockWriteCloser, buf media.SampleBuffer) bool {
	if err := w.file.Err(); err != nil {
		w.failLocked(err)
		return false
	}
	rel := buf.PTS - w.origin
	if _, err := track.Write(buf.Keyframe, rel.Milliseconds(), buf.Data); err != nil {
		w.failLocked(err)
		return false
	}
	return true
}

func (w *Writer) failLocked(err error) {
	w.err = err
	logrus.WithFields(logrus.Fields{
		"function": "Writer.append",
		"path":     w.path,
		"error":    err.Error(),
	}).Error("Movie container write failed")
}

// End flushes both tracks and seals the file. The writer is spent afterwards
// whatever the outcome; on failure the unsealed file is removed and the error
// wraps ErrFinalizationFailed.
func (w *Writer) End() (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.begun {
		return Result{}, fmt.Errorf("%w: writer never began", ErrFinalizationFailed)
	}
	if w.ended {
		return Result{}, fmt.Errorf("%w: %w", ErrFinalizationFailed, ErrWriterSpent)
	}
	w.ended = true

	err := w.sealLocked()
	if err == nil && !w.started {
		err = ErrNoVideoFrames
	}
	if err == nil {
		err = w.err
	}
	if err != nil {
		_ = os.Remove(w.path)
		logrus.WithFields(logrus.Fields{
			"function": "Writer.End",
			"path":     w.path,
			"error":    err.Error(),
		}).Error("Failed to finalize movie")
		return Result{}, fmt.Errorf("%w: %w", ErrFinalizationFailed, err)
	}

	result := Result{
		Path:          w.path,
		Duration:      w.elapsedLocked(),
		VideoFrames:   w.videoFrames,
		AudioFrames:   w.audioFrames,
		DroppedFrames: w.dropped,
	}
	size, digest, err := fileDigest(w.path)
	if err != nil {
		_ = os.Remove(w.path)
		return Result{}, fmt.Errorf("%w: %w", ErrFinalizationFailed, err)
	}
	result.Size = size
	result.Digest = digest

	logrus.WithFields(logrus.Fields{
		"function":     "Writer.End",
		"path":         result.Path,
		"duration":     result.Duration,
		"video_frames": result.VideoFrames,
		"audio_frames": result.AudioFrames,
		"dropped":      result.DroppedFrames,
		"size":         result.Size,
	}).Info("Movie sealed")

	return result, nil
}

// sealLocked closes the track writers and waits for the container to close
// the file underneath them.
func (w *Writer) sealLocked() error {
	var errs []error
	if w.sound != nil {
		if err := w.sound.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.video.Close(); err != nil {
		errs = append(errs, err)
	}

	select {
	case <-w.file.Closed():
	case <-w.file.Failed():
		// The container stopped on a fatal error and will not close the file.
		_ = w.file.Close()
	case <-time.After(w.opts.FinalizeTimeout):
		// Writes the container attempts after this are discarded.
		w.file.fail(fmt.Errorf("container did not close within %s", w.opts.FinalizeTimeout))
		_ = w.file.Close()
	}
	if err := w.file.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Path returns the output file path, empty before Begin.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Started reports whether the time origin has been established.
func (w *Writer) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Elapsed returns the span from the time origin to the latest accepted
// buffer of either kind.
func (w *Writer) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsedLocked()
}

func (w *Writer) elapsedLocked() time.Duration {
	if !w.started {
		return 0
	}
	last := w.lastVideo
	if w.hasAudio && w.lastAudio > last {
		last = w.lastAudio
	}
	return last - w.origin
}

func fileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// sealingFile is the io.WriteCloser handed to the container. It remembers
// the first write, sync or close error and fsyncs before closing.
//
// Errors are recorded, never returned to the container: its writer goroutine
// treats them as fatal. Once an error is recorded further writes are
// discarded and End reports the recorded error.
type sealingFile struct {
	mu       sync.Mutex
	f        File
	err      error
	isClosed bool

	closeOnce sync.Once
	closed    chan struct{}
	failOnce  sync.Once
	failed    chan struct{}
}

func newSealingFile(f File) *sealingFile {
	return &sealingFile{f: f, closed: make(chan struct{}), failed: make(chan struct{})}
}

func (s *sealingFile) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.err != nil || s.isClosed {
		s.mu.Unlock()
		return len(p), nil
	}
	_, err := s.f.Write(p)
	s.mu.Unlock()
	if err != nil {
		s.setErr(err)
	}
	return len(p), nil
}

func (s *sealingFile) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.isClosed = true
		serr := s.f.Sync()
		cerr := s.f.Close()
		s.mu.Unlock()
		if serr != nil {
			s.setErr(serr)
		}
		if cerr != nil {
			s.setErr(cerr)
		}
		close(s.closed)
	})
	return nil
}

// fail records a fatal container error.
func (s *sealingFile) fail(err error) {
	s.setErr(err)
	s.failOnce.Do(func() { close(s.failed) })
}

func (s *sealingFile) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error seen on the file.
func (s *sealingFile) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Closed is closed once the file has been closed.
func (s *sealingFile) Closed() <-chan struct{} {
	return s.closed
}

// Failed is closed once the container reported a fatal error.
func (s *sealingFile) Failed() <-chan struct{} {
	return s.failed
}
