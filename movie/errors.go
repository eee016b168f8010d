package movie

import "errors"

// Sentinel errors for movie writer operations. The camcorder maps them onto
// its coded error domain with errors.Is.
var (
	// ErrInvalidOutputSettings indicates the resolution, codec or audio
	// settings are not acceptable to the encoder.
	ErrInvalidOutputSettings = errors.New("invalid output settings")

	// ErrWriterInitializationFailed indicates the output container could not
	// be opened for writing.
	ErrWriterInitializationFailed = errors.New("writer initialization failed")

	// ErrFinalizationFailed indicates the container could not be sealed into
	// a valid file.
	ErrFinalizationFailed = errors.New("finalization failed")
)

// Detail errors wrapped together with the sentinels above.
var (
	// ErrInsufficientStorage indicates the output volume is below the
	// configured free space floor.
	ErrInsufficientStorage = errors.New("insufficient storage")

	// ErrNoVideoFrames indicates End was called before any video frame
	// established the time origin.
	ErrNoVideoFrames = errors.New("no video frames written")

	// ErrWriterSpent indicates the writer was used after End.
	ErrWriterSpent = errors.New("writer already ended")
)
