package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/subtlepseudonym/forcelog"
	"github.com/subtlepseudonym/forcelog/session"
)

// APIError is the JSON error body of every failed request
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func NewAPIError(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// ParseErrorDetails locates a parse failure in the uploaded file
type ParseErrorDetails struct {
	Line   int    `json:"line,omitempty"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
}

type DecodeErrorDetails struct {
	Offset int `json:"offset"`
}

func invalidParameter(name string, err error) *APIError {
	return NewAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "invalid parameter "+name, err.Error())
}

// apiError maps domain and session failures onto API errors
func apiError(err error) *APIError {
	var apiErr *APIError
	var decodeErr *forcelog.DecodeError
	var parseErr *forcelog.ParseError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &decodeErr):
		return NewAPIError(http.StatusUnprocessableEntity, "DECODE_ERROR", "file is not valid UTF-8 text", DecodeErrorDetails{Offset: decodeErr.Offset})
	case errors.As(err, &parseErr):
		details := ParseErrorDetails{
			Line:   parseErr.Line,
			Column: parseErr.Column,
		}
		if parseErr.Err != nil {
			details.Reason = parseErr.Err.Error()
		}
		return NewAPIError(http.StatusUnprocessableEntity, "PARSE_ERROR", "file could not be parsed", details)
	case errors.Is(err, session.ErrNoDataset):
		return NewAPIError(http.StatusConflict, "NO_DATASET", "no dataset loaded", nil)
	case errors.Is(err, session.ErrSelection):
		return NewAPIError(http.StatusBadRequest, "INVALID_SELECTION", err.Error(), nil)
	case errors.Is(err, session.ErrNotFound):
		return NewAPIError(http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
	}

	return NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
}
