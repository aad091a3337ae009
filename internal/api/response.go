// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "lead-intake/internal/common/errors"
)

type errorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Fields  []string            `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err as {code, message}. Details stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	resp := errorResponse{Code: stdErr.Code, Message: stdErr.Message}
	if fields, ok := stdErr.Metadata["fields"].([]string); ok {
		resp.Fields = fields
	}
	writeJSON(w, statusFor(stdErr.Code), resp)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidTransition, apperrors.ErrCodeSubmissionInFlight,
		apperrors.ErrCodeRecordingActive, apperrors.ErrCodeRecordingNotStarted:
		return http.StatusConflict
	case apperrors.ErrCodeRecordingTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrCodeValidationBlocked:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeTranscriptionFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeMicrophoneUnavailable, apperrors.ErrCodeSessionClosed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
