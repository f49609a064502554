// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All ledger business errors must use AppError so callers can branch on Code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeInsufficientStock         = "INSUFFICIENT_STOCK"
	CodeInsufficientLotQuantity   = "INSUFFICIENT_LOT_QUANTITY"
	CodeProductUnavailable        = "PRODUCT_UNAVAILABLE"
	CodeInvalidDiscount           = "INVALID_DISCOUNT"
	CodeSaleLocked                = "SALE_LOCKED"
	CodeSaleCancelled             = "SALE_CANCELLED"
	CodeExceedsReturnableQuantity = "EXCEEDS_RETURNABLE_QUANTITY"
	CodeEmptyReturn               = "EMPTY_RETURN"
	CodeInvalidReturnQuantity     = "INVALID_RETURN_QUANTITY"
	CodeReturnWindowClosed        = "RETURN_WINDOW_CLOSED"
	CodeAlreadyRestored           = "ALREADY_RESTORED"
	CodeProductHasSales           = "PRODUCT_HAS_SALES"

	// Not found (404)
	CodeNotFound        = "NOT_FOUND"
	CodeProductNotFound = "PRODUCT_NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the ledger.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (product id, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewProductNotFound is returned when a sale line references an unknown product.
func NewProductNotFound(productID string) *AppError {
	return &AppError{
		Code:       CodeProductNotFound,
		Message:    "Product not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock creates a stock shortage error.
func NewInsufficientStock(productID string, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInsufficientLotQuantity signals an attempt to draw more than a lot holds.
// Callers precheck totals, so seeing this means an invariant was broken.
func NewInsufficientLotQuantity(lotID string, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientLotQuantity,
		Message:    "Lot does not hold the requested quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"lot_id":    lotID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewProductUnavailable is returned for a paid line whose product is inactive or has no price.
func NewProductUnavailable(productID string) *AppError {
	return &AppError{
		Code:       CodeProductUnavailable,
		Message:    "Product is inactive or has no sale price",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewProductHasSales is returned when deleting a product that sale lines reference.
func NewProductHasSales(productID string) *AppError {
	return &AppError{
		Code:       CodeProductHasSales,
		Message:    "Product has sale history and cannot be deleted",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewSaleLocked is returned when a sale with registered returns is edited or deleted.
func NewSaleLocked(saleID string) *AppError {
	return &AppError{
		Code:       CodeSaleLocked,
		Message:    "Sale has returns and can no longer be modified",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"sale_id": saleID},
	}
}

// NewSaleCancelled is returned for operations that need a completed sale.
func NewSaleCancelled(saleID string) *AppError {
	return &AppError{
		Code:       CodeSaleCancelled,
		Message:    "Sale is cancelled",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"sale_id": saleID},
	}
}

// NewExceedsReturnable creates an error for a return larger than what is left on the line.
func NewExceedsReturnable(lineItemID string, requested, returnable int64) *AppError {
	return &AppError{
		Code:       CodeExceedsReturnableQuantity,
		Message:    "Return quantity exceeds returnable quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"line_item_id": lineItemID,
			"requested":    requested,
			"returnable":   returnable,
		},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
