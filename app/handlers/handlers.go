// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/fatoora-io/fatoora/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "username_format":
		return "Username must contain only lowercase letters, numbers, and underscores"
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "invoice_status":
		return "Status must be one of: draft, sent, paid, cancelled"
	case "invoice_language":
		return "Language must be one of: ar, en"
	case "invoice_currency":
		return "Currency must be one of: MAD, USD, EUR, SAR, AED"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// newValidator builds a validator with the domain-specific tag set registered
func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("username_format", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '_') {
				return false
			}
		}
		return len(value) > 0
	})

	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()

		hasUpper := false
		hasNumber := false

		for _, char := range value {
			if char >= 'A' && char <= 'Z' {
				hasUpper = true
			}
			if char >= '0' && char <= '9' {
				hasNumber = true
			}
		}

		return hasUpper && hasNumber
	})

	_ = v.RegisterValidation("invoice_status", func(fl validator.FieldLevel) bool {
		return models.IsValidInvoiceStatus(fl.Field().String())
	})

	_ = v.RegisterValidation("invoice_language", func(fl validator.FieldLevel) bool {
		return models.IsValidInvoiceLanguage(fl.Field().String())
	})

	_ = v.RegisterValidation("invoice_currency", func(fl validator.FieldLevel) bool {
		return models.IsValidInvoiceCurrency(fl.Field().String())
	})

	return v
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

type requestContextKey string

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability. The request ID uses the
	// shared key the audit writers read.
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID")) //nolint:staticcheck
	ctx = context.WithValue(ctx, requestContextKey("user_agent"), c.Get("User-Agent"))
	ctx = context.WithValue(ctx, requestContextKey("ip_address"), c.IP())
	ctx = context.WithValue(ctx, requestContextKey("endpoint"), endpoint)
	ctx = context.WithValue(ctx, requestContextKey("cancel_func"), cancel) // Store cancel function for cleanup

	return ctx
}
