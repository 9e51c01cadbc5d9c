// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, "application/json", status, data)
}

// Problem sends an RFC7807 problem details response. The type URI is derived
// from the title, e.g. "Not Found" becomes "/problems/not-found".
func Problem(w http.ResponseWriter, status int, title, detail string) {
	write(w, "application/problem+json", status, ProblemDetail{
		Type:   "/problems/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func write(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON strictly decodes a single JSON object of at most limit bytes
// into target. Failures wrap ErrPayloadTooLarge or ErrValidation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", ErrValidation)
		default:
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrValidation)
	}
	return nil
}
