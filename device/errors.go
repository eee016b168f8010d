package device

import "errors"

// Sentinel errors returned (possibly wrapped) by Device.Open and Device.Start.
var (
	// ErrVideoDeviceNotFound indicates no camera exists at the requested position.
	ErrVideoDeviceNotFound = errors.New("video device not found")

	// ErrAudioDeviceNotFound indicates audio was requested but no microphone exists.
	ErrAudioDeviceNotFound = errors.New("audio device not found")

	// ErrAddVideoInput indicates the camera could not be added to the session.
	ErrAddVideoInput = errors.New("cannot add video input")

	// ErrAddAudioInput indicates the microphone could not be added to the session.
	ErrAddAudioInput = errors.New("cannot add audio input")

	// ErrAddVideoOutput indicates the video sample output could not be attached.
	ErrAddVideoOutput = errors.New("cannot add video output")

	// ErrAddAudioOutput indicates the audio sample output could not be attached.
	ErrAddAudioOutput = errors.New("cannot add audio output")

	// ErrFocusUnsupported is returned by Focus on hardware without focus control.
	ErrFocusUnsupported = errors.New("focus not supported")

	// ErrNotOpen indicates a control call on a session that is not open.
	ErrNotOpen = errors.New("device not open")
)
