package dto

import "time"

// ErrorResponse is the standardized JSON error body returned by every API
// endpoint.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid request"`
	ErrorDetails string    `json:"error,omitempty" example:"account_id is required"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse, attaching the inner error's
// text when present.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}

// Error implements the error interface so handlers can propagate the
// response as an error value.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}
