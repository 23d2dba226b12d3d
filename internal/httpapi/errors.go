package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"bizmatch/internal/lifecycle"
	"bizmatch/internal/matcher"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ve *lifecycle.ValidationError
		ce *matcher.ComputationError
	)
	switch {
	case errors.As(err, &ve):
		switch ve.Reason {
		case lifecycle.ReasonStatus:
			return http.StatusConflict
		case lifecycle.ReasonActor:
			return http.StatusForbidden
		default:
			return http.StatusBadRequest
		}
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal failures are logged and their
// details withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		h.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	case http.StatusNotFound:
		msg = "not found"
	}
	jsonError(w, msg, code)
}
