// Package errors provides standardized error handling for the intake service.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationBlocked   ErrorCode = "VALIDATION_BLOCKED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeSubmissionInFlight  ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeScoringFailed       ErrorCode = "SCORING_FAILED"
	ErrCodePersistFailed       ErrorCode = "PERSIST_FAILED"
	ErrCodeNotifyFailed        ErrorCode = "NOTIFY_FAILED"
	ErrCodeSubmissionCancelled ErrorCode = "SUBMISSION_CANCELLED"
	ErrCodeStorageCorrupt      ErrorCode = "STORAGE_CORRUPT"

	ErrCodeMicrophoneUnavailable ErrorCode = "MICROPHONE_UNAVAILABLE"
	ErrCodeRecordingActive       ErrorCode = "RECORDING_ACTIVE"
	ErrCodeRecordingNotStarted   ErrorCode = "RECORDING_NOT_STARTED"
	ErrCodeRecordingTooLarge     ErrorCode = "RECORDING_TOO_LARGE"
	ErrCodeTranscriptionFailed   ErrorCode = "TRANSCRIPTION_FAILED"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionClosed   ErrorCode = "SESSION_CLOSED"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// SubmissionFailedMessage is the only failure text a customer ever sees for a
// submission, whichever stage failed.
const SubmissionFailedMessage = "An error occurred while processing your request."

// Sentinel errors. Collaborators wrap these with %w so callers can classify
// failures with errors.Is.
var (
	ErrValidationBlocked     = stderrors.New(string(ErrCodeValidationBlocked))
	ErrInvalidTransition     = stderrors.New(string(ErrCodeInvalidTransition))
	ErrSubmissionInFlight    = stderrors.New(string(ErrCodeSubmissionInFlight))
	ErrScoringFailed         = stderrors.New(string(ErrCodeScoringFailed))
	ErrPersistFailed         = stderrors.New(string(ErrCodePersistFailed))
	ErrNotifyFailed          = stderrors.New(string(ErrCodeNotifyFailed))
	ErrSubmissionCancelled   = stderrors.New(string(ErrCodeSubmissionCancelled))
	ErrStorageCorrupt        = stderrors.New(string(ErrCodeStorageCorrupt))
	ErrMicrophoneUnavailable = stderrors.New(string(ErrCodeMicrophoneUnavailable))
	ErrRecordingActive       = stderrors.New(string(ErrCodeRecordingActive))
	ErrRecordingNotStarted   = stderrors.New(string(ErrCodeRecordingNotStarted))
	ErrRecordingTooLarge     = stderrors.New(string(ErrCodeRecordingTooLarge))
	ErrTranscriptionFailed   = stderrors.New(string(ErrCodeTranscriptionFailed))
	ErrSessionNotFound       = stderrors.New(string(ErrCodeSessionNotFound))
	ErrSessionClosed         = stderrors.New(string(ErrCodeSessionClosed))
	ErrInvalidRequest        = stderrors.New(string(ErrCodeInvalidRequest))
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets errors.Is match a StandardError against the sentinel of the same code.
func (e *StandardError) Is(target error) bool {
	return target != nil && target.Error() == string(e.Code)
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationBlockedError reports which fields keep the wizard from advancing.
func NewValidationBlockedError(step int, fields []string) *StandardError {
	e := newError(ErrCodeValidationBlocked, "Current step is incomplete", fmt.Sprintf("step: %d", step), false)
	e.Metadata = map[string]interface{}{"fields": fields}
	return e
}

func NewInvalidTransitionError(action string, step int) *StandardError {
	return newError(ErrCodeInvalidTransition, "Action not available on this step",
		fmt.Sprintf("action: %s, step: %d", action, step), false)
}

func NewSubmissionFailedError(stage string, err error) *StandardError {
	code := ErrCodeInternal
	switch {
	case stderrors.Is(err, ErrScoringFailed):
		code = ErrCodeScoringFailed
	case stderrors.Is(err, ErrPersistFailed):
		code = ErrCodePersistFailed
	case stderrors.Is(err, ErrNotifyFailed):
		code = ErrCodeNotifyFailed
	case stderrors.Is(err, ErrSubmissionCancelled):
		code = ErrCodeSubmissionCancelled
	}
	return newError(code, SubmissionFailedMessage, fmt.Sprintf("stage: %s, error: %v", stage, err), true)
}

func NewMicrophoneUnavailableError() *StandardError {
	return newError(ErrCodeMicrophoneUnavailable, "Voice capture is not available. Check permissions.", "", false)
}

func NewTranscriptionFailedError(err error) *StandardError {
	return newError(ErrCodeTranscriptionFailed, "Could not process the audio. Please try again.", err.Error(), true)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found", fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 3. Classification
// ==========================

var userMessages = []struct {
	sentinel error
	code     ErrorCode
	message  string
}{
	{ErrValidationBlocked, ErrCodeValidationBlocked, "Current step is incomplete"},
	{ErrInvalidTransition, ErrCodeInvalidTransition, "Action not available on this step"},
	{ErrSubmissionInFlight, ErrCodeSubmissionInFlight, "A submission is already in progress"},
	{ErrMicrophoneUnavailable, ErrCodeMicrophoneUnavailable, "Voice capture is not available. Check permissions."},
	{ErrRecordingActive, ErrCodeRecordingActive, "A recording is already in progress"},
	{ErrRecordingNotStarted, ErrCodeRecordingNotStarted, "No recording in progress"},
	{ErrRecordingTooLarge, ErrCodeRecordingTooLarge, "Recording is too long"},
	{ErrTranscriptionFailed, ErrCodeTranscriptionFailed, "Could not process the audio. Please try again."},
	{ErrSessionNotFound, ErrCodeSessionNotFound, "Session not found"},
	{ErrSessionClosed, ErrCodeSessionClosed, "Session is no longer active"},
	{ErrInvalidRequest, ErrCodeInvalidRequest, "Invalid request"},
}

// Normalize always returns a StandardError. Unknown errors become
// INTERNAL_ERROR so no internal detail leaks into the user-facing message.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	for _, m := range userMessages {
		if stderrors.Is(err, m.sentinel) {
			return newError(m.code, m.message, err.Error(), IsRetryableErrorCode(m.code))
		}
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode reports whether resubmitting may succeed.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeScoringFailed, ErrCodePersistFailed, ErrCodeNotifyFailed,
		ErrCodeSubmissionCancelled, ErrCodeTranscriptionFailed:
		return true
	}
	return false
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationBlocked, ErrCodeInvalidTransition, ErrCodeInvalidRequest,
		ErrCodeRecordingActive, ErrCodeRecordingNotStarted, ErrCodeRecordingTooLarge:
		return "CLIENT"
	case ErrCodeScoringFailed, ErrCodePersistFailed, ErrCodeNotifyFailed, ErrCodeTranscriptionFailed:
		return "EXTERNAL_SERVICE"
	case ErrCodeStorageCorrupt:
		return "STORAGE"
	case ErrCodeSessionNotFound, ErrCodeSessionClosed, ErrCodeSubmissionInFlight, ErrCodeSubmissionCancelled:
		return "SESSION"
	case ErrCodeMicrophoneUnavailable:
		return "DEVICE"
	}
	return "INTERNAL"
}
