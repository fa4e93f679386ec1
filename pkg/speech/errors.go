package speech

import (
	"errors"
	"fmt"
)

// Code identifies a recognition failure. The vocabulary is fixed;
// implementations map their native errors onto it.
type Code string

// Recognition error codes.
const (
	// CodeNoSpeech means the session ended without detecting speech.
	CodeNoSpeech Code = "no-speech"

	// CodeNotAllowed means microphone permission was denied.
	CodeNotAllowed Code = "not-allowed"

	// CodeNetwork means the recognition service was unreachable.
	CodeNetwork Code = "network"

	// CodeAudioCapture means no usable audio input was available.
	CodeAudioCapture Code = "audio-capture"

	// CodeAborted means the session was cut short outside the
	// controller's own Stop path.
	CodeAborted Code = "aborted"

	// CodeServiceNotAllowed means the recognition service rejected
	// the client.
	CodeServiceNotAllowed Code = "service-not-allowed"
)

// RecognitionError is a recognizer failure with its classification
// code.
type RecognitionError struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech: recognition error: %s", e.Code)
	}
	return fmt.Sprintf("speech: recognition error %s: %s", e.Code, e.Message)
}

// IsTerminal reports whether the error cannot be retried: the user or
// platform denied access and the controller must stop.
func (e *RecognitionError) IsTerminal() bool {
	return e.Code == CodeNotAllowed || e.Code == CodeServiceNotAllowed
}

// IsTransient reports whether a single retry is worthwhile.
func (e *RecognitionError) IsTransient() bool {
	return e.Code == CodeNetwork || e.Code == CodeAborted || e.Code == CodeAudioCapture
}

// NewRecognitionError creates a RecognitionError with the given code.
func NewRecognitionError(code Code, message string) *RecognitionError {
	return &RecognitionError{Code: code, Message: message}
}

// CodeOf extracts the recognition code from err, or the empty code
// when err is not a RecognitionError.
func CodeOf(err error) Code {
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return recErr.Code
	}
	return ""
}
