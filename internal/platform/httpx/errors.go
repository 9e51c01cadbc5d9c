// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers translate domain failures into.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrValidation       = errors.New("validation failed")
	ErrConfigIncomplete = errors.New("configuration incomplete")
	ErrUpstream         = errors.New("upstream failure")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnavailable      = errors.New("service unavailable")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Validation and configuration details are echoed; other details are withheld.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrConfigIncomplete):
		Problem(w, http.StatusUnprocessableEntity, "Configuration Incomplete", err.Error())
	case errors.Is(err, ErrPayloadTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusBadGateway, "Upstream Failure", "")
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
