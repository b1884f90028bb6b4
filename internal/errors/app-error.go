package app_error

import (
	"encoding/json"
	"io"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

// Transient reports whether the failure is a plain connectivity problem rather
// than a server verdict. Transient failures on list/read paths are swallowed:
// existing state is kept and no error reaches the user.
func (e AppError) Transient() bool {
	return e.Code == 0 || e.Code >= http.StatusInternalServerError
}

const genericMessage = "something went wrong, please try again"

// FromResponse builds an AppError from a non-2xx server response. The server
// wraps errors as {"errors": {"code", "message", "field"}}; when the payload is
// missing or malformed the generic message is used so raw bodies never leak to
// the user.
func FromResponse(status int, body io.Reader) *AppError {
	var payload struct {
		Errors *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Field   string `json:"field,omitempty"`
		} `json:"errors"`
		Message string `json:"message"`
	}

	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		if payload.Errors != nil && payload.Errors.Message != "" {
			return NewAppError(status, payload.Errors.Message, payload.Errors.Field)
		}
		if payload.Message != "" {
			return NewAppError(status, payload.Message, "")
		}
	}

	return NewAppError(status, genericMessage, "")
}

// FromNetwork wraps a transport-level failure (dial, timeout, broken pipe).
func FromNetwork(err error) *AppError {
	return &AppError{Code: 0, Message: err.Error(), Field: "network"}
}
