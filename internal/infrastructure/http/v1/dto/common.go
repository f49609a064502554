// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// CreatedResponse is returned by document-creating endpoints.
type CreatedResponse struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
}

// ErrorResponse documents the error body rendered by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items  []T    `json:"items"`
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}
