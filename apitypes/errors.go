// Package apitypes holds the types exchanged with a peer over the event
// stream: the problem+json error reply and the binary event batch.
package apitypes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

func ErrBadRequest(detail string) ApiError {
	return ApiError{Status: 400, Title: "Bad Request", Detail: detail}
}
func ErrUnauthorized(detail string) ApiError {
	return ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}
func ErrNotFound(detail string) ApiError {
	return ApiError{Status: 404, Title: "Not Found", Detail: detail}
}
func ErrInternal(detail string) ApiError {
	return ApiError{Status: 500, Title: "Internal Server Error", Detail: detail}
}

// WrapError normalizes any error into an ApiError.
func WrapError(err error) ApiError {
	var ae ApiError
	if errors.As(err, &ae) {
		return ae
	}
	var pae *ApiError
	if errors.As(err, &pae) && pae != nil {
		return *pae
	}
	return ErrInternal(err.Error())
}

// ParseError decodes a problem+json line. ok is false when line is not one.
func ParseError(line []byte) (ApiError, bool) {
	var ae ApiError
	if err := json.Unmarshal(line, &ae); err != nil {
		return ApiError{}, false
	}
	return ae, ae.Status != 0 || ae.Title != ""
}

// PingResponse answers the "ping" route.
type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}
