package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"stockdesk/internal/core"
)

// errorResponse is the wire shape of every failure. The quantity/amount
// fields are present only for stock and funds violations.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Available any    `json:"available,omitempty"`
	Requested any    `json:"requested,omitempty"`
	Required  any    `json:"required,omitempty"`
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error onto the HTTP surface. Business-rule
// failures carry their quantities/amounts; anything unrecognized becomes a
// generic 500 so persistence details never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{RequestID: requestIDFromContext(r.Context())}

	var stockErr *core.InsufficientStockError
	var fundsErr *core.InsufficientFundsError
	var validationErrs validator.ValidationErrors
	var badReq badRequestError

	switch {
	case errors.Is(err, core.ErrItemNotFound):
		resp.Error = "Item not found"
		resp.Message = err.Error()
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, core.ErrCompanyNotFound),
		errors.Is(err, core.ErrBatchNotFound),
		errors.Is(err, core.ErrLocationNotFound):
		resp.Error = "Not found"
		resp.Message = err.Error()
		writeJSON(w, http.StatusNotFound, resp)
	case errors.As(err, &stockErr):
		resp.Error = "Insufficient stock"
		resp.Message = fmt.Sprintf("Cannot %s %d items. Only %d in stock.",
			stockErr.Action, stockErr.Requested, stockErr.Available)
		resp.Available = stockErr.Available
		resp.Requested = stockErr.Requested
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &fundsErr):
		resp.Error = "Insufficient funds"
		resp.Message = err.Error()
		resp.Available = fundsErr.Available.StringFixed(2)
		resp.Required = fundsErr.Required.StringFixed(2)
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &badReq):
		resp.Error = "Validation failed"
		resp.Message = badReq.msg
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &validationErrs):
		resp.Error = "Validation failed"
		resp.Message = validationErrs.Error()
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		resp.Error = "Internal server error"
		resp.Message = "the request could not be completed"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// badRequestError marks malformed input detected before the service layer.
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }

// writeBadRequest reports a malformed payload before any persistence access.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     "Validation failed",
		Message:   message,
		RequestID: requestIDFromContext(r.Context()),
	})
}
