// Package domain defines the values exchanged between the error views,
// the response builder and the HTTP boundary, plus the persistence model of
// the optional error event journal.
package domain

// ErrorSpec is the resolved title/header/message bundle for one error
// response. It is a value: once resolved for a request it is not modified.
type ErrorSpec struct {
	StatusCode int            `json:"status"`
	Title      string         `json:"title"`
	Header     string         `json:"header"`
	Message    string         `json:"message"`
	Redirect   string         `json:"redirect"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// ErrorBody is the JSON error envelope.
//
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "error": "Permission Denied",
//	  "message": "You do not have permission to access this page.",
//	  "details": "No additional details provided.",
//	  "code": "forbidden"
//	}
type ErrorBody struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Short error label
	Error string `json:"error" example:"Page Not Found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message,omitempty" example:"Sorry, the page you are looking for does not exist."`
	// Structured details, or a placeholder sentence when there are none
	Details any `json:"details" swaggertype:"object"`
	// Stable, machine-readable code
	Code string `json:"code,omitempty" example:"not_found"`
}

// ErrorResponse is the outbound artifact for one error. Only StatusCode,
// ContentType and Body reach the client; the remaining fields describe the
// event for the logging boundary.
type ErrorResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte

	// Message and Details are what the error log line reports.
	Message string
	Details any
	// Log mirrors the resolved log_errors setting for the status.
	Log bool
	// RenderErr is set when HTML rendering failed and the body fell back to JSON.
	RenderErr error
}
