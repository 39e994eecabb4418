// Package handlers defines HTTP-layer error codes used across the API endpoints.
//
// This file centralizes symbolic error code constants carried in the `code`
// field of JSON error bodies (via ErrorViews.Fail), and CodeForStatus, the
// generic code used when a failure names none. They give clients a
// stable, machine-readable error taxonomy next to the human-readable message.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes are reserved for failures that the status alone
//     cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "error": "Bad Request",
//	  "message": "status must be an error status (400-599)",
//	  "details": "No additional details provided.",
//	  "code": "invalid_filter"
//	}
package handlers

import "net/http"

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRequestTimeout   = "request_timeout"
	ErrCodeGone             = "gone"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeListFailed    = "list_failed"
	ErrCodeInvalidFilter = "invalid_filter"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusForbidden:           ErrCodeForbidden,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusMethodNotAllowed:    ErrCodeMethodNotAllowed,
	http.StatusRequestTimeout:      ErrCodeRequestTimeout,
	http.StatusGone:                ErrCodeGone,
	http.StatusTooManyRequests:     ErrCodeRateLimited,
	http.StatusInternalServerError: ErrCodeInternal,
}

// CodeForStatus returns the generic code for status. Other 4xx statuses map
// to ErrCodeBadRequest and everything else to ErrCodeInternal.
func CodeForStatus(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 400 && status < 500 {
		return ErrCodeBadRequest
	}
	return ErrCodeInternal
}
