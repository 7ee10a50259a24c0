// Package apierror shapes every 4xx/5xx body the API returns. Handlers
// never hand a driver or validator error straight to a client; it comes
// through here so nothing internal leaks and every device parses the
// same envelope.
package apierror

// APIError carries one human-readable line.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError adds the per-field failures, keyed by struct field
// name with the failing validator tag as value.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
