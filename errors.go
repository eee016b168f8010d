package camcorder

import (
	"errors"
	"fmt"

	"github.com/opd-ai/camcorder/device"
	"github.com/opd-ai/camcorder/movie"
)

// ErrorDomain namespaces every Error code.
const ErrorDomain = "Camcorder"

// ErrorCode is a stable failure code within ErrorDomain.
type ErrorCode int

// Failure codes. The values are part of the public contract.
const (
	CodeNotTurnedOn                ErrorCode = 1001
	CodeAlreadyRecording           ErrorCode = 1002
	CodeNotRecording               ErrorCode = 1003
	CodeVideoDeviceNotFound        ErrorCode = 1004
	CodeAudioDeviceNotFound        ErrorCode = 1005
	CodeAddVideoInput              ErrorCode = 1006
	CodeAddAudioInput              ErrorCode = 1007
	CodeAddVideoOutput             ErrorCode = 1008
	CodeAddAudioOutput             ErrorCode = 1009
	CodeInvalidOutputSettings      ErrorCode = 1010
	CodeWriterInitializationFailed ErrorCode = 1011
	CodeFinalizationFailed         ErrorCode = 1012
)

var codeNames = map[ErrorCode]string{
	CodeNotTurnedOn:                "NotTurnedOn",
	CodeAlreadyRecording:           "AlreadyRecording",
	CodeNotRecording:               "NotRecording",
	CodeVideoDeviceNotFound:        "VideoDeviceNotFound",
	CodeAudioDeviceNotFound:        "AudioDeviceNotFound",
	CodeAddVideoInput:              "AddVideoInput",
	CodeAddAudioInput:              "AddAudioInput",
	CodeAddVideoOutput:             "AddVideoOutput",
	CodeAddAudioOutput:             "AddAudioOutput",
	CodeInvalidOutputSettings:      "InvalidOutputSettings",
	CodeWriterInitializationFailed: "WriterInitializationFailed",
	CodeFinalizationFailed:         "FinalizationFailed",
}

var codeMessages = map[ErrorCode]string{
	CodeNotTurnedOn:                "camera is not turned on",
	CodeAlreadyRecording:           "a recording is already in progress",
	CodeNotRecording:               "no recording is in progress",
	CodeVideoDeviceNotFound:        "video device not found",
	CodeAudioDeviceNotFound:        "audio device not found",
	CodeAddVideoInput:              "cannot add video input to the session",
	CodeAddAudioInput:              "cannot add audio input to the session",
	CodeAddVideoOutput:             "cannot add video output to the session",
	CodeAddAudioOutput:             "cannot add audio output to the session",
	CodeInvalidOutputSettings:      "output settings are not supported",
	CodeWriterInitializationFailed: "movie writer could not be initialized",
	CodeFinalizationFailed:         "movie could not be finalized",
}

// String returns the name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error is a failure reported through FailedEvent.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error %d (%s): %s", ErrorDomain, int(e.Code), e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Domain returns ErrorDomain.
func (e *Error) Domain() string {
	return ErrorDomain
}

// Sentinel values for matching with errors.Is.
var (
	ErrNotTurnedOn                = &Error{Code: CodeNotTurnedOn, Message: codeMessages[CodeNotTurnedOn]}
	ErrAlreadyRecording           = &Error{Code: CodeAlreadyRecording, Message: codeMessages[CodeAlreadyRecording]}
	ErrNotRecording               = &Error{Code: CodeNotRecording, Message: codeMessages[CodeNotRecording]}
	ErrVideoDeviceNotFound        = &Error{Code: CodeVideoDeviceNotFound, Message: codeMessages[CodeVideoDeviceNotFound]}
	ErrAudioDeviceNotFound        = &Error{Code: CodeAudioDeviceNotFound, Message: codeMessages[CodeAudioDeviceNotFound]}
	ErrAddVideoInput              = &Error{Code: CodeAddVideoInput, Message: codeMessages[CodeAddVideoInput]}
	ErrAddAudioInput              = &Error{Code: CodeAddAudioInput, Message: codeMessages[CodeAddAudioInput]}
	ErrAddVideoOutput             = &Error{Code: CodeAddVideoOutput, Message: codeMessages[CodeAddVideoOutput]}
	ErrAddAudioOutput             = &Error{Code: CodeAddAudioOutput, Message: codeMessages[CodeAddAudioOutput]}
	ErrInvalidOutputSettings      = &Error{Code: CodeInvalidOutputSettings, Message: codeMessages[CodeInvalidOutputSettings]}
	ErrWriterInitializationFailed = &Error{Code: CodeWriterInitializationFailed, Message: codeMessages[CodeWriterInitializationFailed]}
	ErrFinalizationFailed         = &Error{Code: CodeFinalizationFailed, Message: codeMessages[CodeFinalizationFailed]}
)

// newError builds an Error with the standard message for code.
func newError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: codeMessages[code], Cause: cause}
}

// deviceErrorCodes maps device sentinels onto codes, most specific first.
var deviceErrorCodes = []struct {
	err  error
	code ErrorCode
}{
	{device.ErrVideoDeviceNotFound, CodeVideoDeviceNotFound},
	{device.ErrAudioDeviceNotFound, CodeAudioDeviceNotFound},
	{device.ErrAddVideoInput, CodeAddVideoInput},
	{device.ErrAddAudioInput, CodeAddAudioInput},
	{device.ErrAddVideoOutput, CodeAddVideoOutput},
	{device.ErrAddAudioOutput, CodeAddAudioOutput},
}

// deviceError maps an Open or Start failure. Unclassified errors fall back
// to the given code.
func deviceError(err error, fallback ErrorCode) *Error {
	for _, m := range deviceErrorCodes {
		if errors.Is(err, m.err) {
			return newError(m.code, err)
		}
	}
	return newError(fallback, err)
}

// writerError maps a movie writer failure.
func writerError(err error, fallback ErrorCode) *Error {
	switch {
	case errors.Is(err, movie.ErrInvalidOutputSettings):
		return newError(CodeInvalidOutputSettings, err)
	case errors.Is(err, movie.ErrWriterInitializationFailed):
		return newError(CodeWriterInitializationFailed, err)
	case errors.Is(err, movie.ErrFinalizationFailed):
		return newError(CodeFinalizationFailed, err)
	default:
		return newError(fallback, err)
	}
}
