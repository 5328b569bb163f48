package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/strata/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Total     *int      `json:"total,omitempty"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// List writes a success response carrying the unpaged total.
func List(w http.ResponseWriter, data any, total int) {
	write(w, http.StatusOK, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC(), Total: &total},
	})
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	write(w, status, ErrorResponse{Error: Detail(err)})
}

// FromError writes err with the status matching its code.
func FromError(w http.ResponseWriter, err error) {
	Error(w, Status(err), err)
}

// Detail describes err for clients. Non-core errors are reported as
// internal without exposing their text.
func Detail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}
	return detail
}

// Status maps an error code to an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidConfiguration),
		errors.Is(err, core.ErrMissingParameter),
		errors.Is(err, core.ErrStrategyNotImplemented),
		errors.Is(err, core.ErrNoStrategies),
		errors.Is(err, core.ErrConfigInvalid),
		errors.Is(err, core.ErrConfigMissing):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrInsufficientData),
		errors.Is(err, core.ErrDataValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
