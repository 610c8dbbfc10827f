// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"errors"
	"fmt"
	"time"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound          = errors.New("user not found")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")

	// Invoice-related errors
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrInvoiceItemsRequired  = errors.New("invoice must contain at least one item")
	ErrItemNameRequired      = errors.New("item name is required")
	ErrItemQuantityInvalid   = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid      = errors.New("item unit price cannot be negative")
	ErrRateOutOfRange        = errors.New("rate must be between 0 and 100")
	ErrInvalidStatus         = errors.New("invalid invoice status")
	ErrInvalidLanguage       = errors.New("invalid invoice language")
	ErrInvalidCurrency       = errors.New("invalid invoice currency")
	ErrInvoiceUpdateRequired = errors.New("at least one field must be provided for update")

	// Artifact errors
	ErrPDFNotReady = errors.New("invoice PDF has not been generated yet")

	// Email delivery errors
	ErrEmailRateLimited    = errors.New("email rate limit exceeded")
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	ErrRecipientRequired   = errors.New("recipient email is required")

	// Cache errors
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// RateLimitError wraps ErrEmailRateLimited with the wait time until the
// oldest permit in the window expires.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrEmailRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrEmailRateLimited
}

// RetryAfterSeconds extracts the retry delay from a rate limit error chain.
// It returns 0 when the error is not a rate limit rejection.
func RetryAfterSeconds(err error) int {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		secs := int(rle.RetryAfter.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		return secs
	}
	return 0
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsUsernameAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyExists)
}

func IsInvoiceNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound)
}

func IsInvoiceItemsRequired(err error) bool {
	return errors.Is(err, ErrInvoiceItemsRequired)
}

func IsItemNameRequired(err error) bool {
	return errors.Is(err, ErrItemNameRequired)
}

func IsItemQuantityInvalid(err error) bool {
	return errors.Is(err, ErrItemQuantityInvalid)
}

func IsItemPriceInvalid(err error) bool {
	return errors.Is(err, ErrItemPriceInvalid)
}

func IsRateOutOfRange(err error) bool {
	return errors.Is(err, ErrRateOutOfRange)
}

func IsInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

func IsInvalidLanguage(err error) bool {
	return errors.Is(err, ErrInvalidLanguage)
}

func IsInvalidCurrency(err error) bool {
	return errors.Is(err, ErrInvalidCurrency)
}

func IsInvoiceUpdateRequired(err error) bool {
	return errors.Is(err, ErrInvoiceUpdateRequired)
}

func IsPDFNotReady(err error) bool {
	return errors.Is(err, ErrPDFNotReady)
}

func IsEmailRateLimited(err error) bool {
	return errors.Is(err, ErrEmailRateLimited)
}

func IsEmailDeliveryFailed(err error) bool {
	return errors.Is(err, ErrEmailDeliveryFailed)
}

func IsRecipientRequired(err error) bool {
	return errors.Is(err, ErrRecipientRequired)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

// IsValidationError reports whether err is any of the invoice input errors
// that should map to a bad-request response.
func IsValidationError(err error) bool {
	return IsInvoiceItemsRequired(err) ||
		IsItemNameRequired(err) ||
		IsItemQuantityInvalid(err) ||
		IsItemPriceInvalid(err) ||
		IsRateOutOfRange(err) ||
		IsInvalidStatus(err) ||
		IsInvalidLanguage(err) ||
		IsInvalidCurrency(err) ||
		IsInvoiceUpdateRequired(err) ||
		IsRecipientRequired(err) ||
		IsInvalidPage(err) ||
		IsInvalidPageSize(err)
}
