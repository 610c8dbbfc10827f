// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"
	"log"
	"strconv"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/middleware"
	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// InvoiceHandlerInterface defines the contract for invoice handlers
type InvoiceHandlerInterface interface {
	Generate(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Download(c fiber.Ctx) error
	SendEmail(c fiber.Ctx) error
}

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceFlow businessflow.InvoiceFlow
	emailFlow   businessflow.EmailFlow
	validator   *validator.Validate
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceFlow businessflow.InvoiceFlow, emailFlow businessflow.EmailFlow) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceFlow: invoiceFlow,
		emailFlow:   emailFlow,
		validator:   newValidator(),
	}
}

func (h *InvoiceHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *InvoiceHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Generate handles invoice creation
func (h *InvoiceHandler) Generate(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.GenerateInvoiceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.invoiceFlow.GenerateInvoice(createRequestContext(c, "/api/v1/invoices/generate"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invoice validation failed", "INVOICE_VALIDATION_FAILED", err.Error())
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Invoice generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Invoice generation failed", "INVOICE_GENERATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result.Invoice)
}

// List returns one page of the account's invoices
func (h *InvoiceHandler) List(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.ListInvoicesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}

	result, err := h.invoiceFlow.ListInvoices(createRequestContext(c, "/api/v1/invoices"), userID, &req)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", err.Error())
		}

		log.Println("Invoice listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list invoices", "INVOICE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Invoices retrieved successfully", result)
}

// Export streams the account's invoices as an Excel workbook
func (h *InvoiceHandler) Export(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	filename, content, err := h.invoiceFlow.ExportInvoicesExcel(createRequestContext(c, "/api/v1/invoices/export"), userID, status)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status filter", "INVALID_STATUS", err.Error())
		}

		log.Println("Invoice export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export invoices", "INVOICE_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(content)
}

// Get returns one invoice owned by the authenticated user
func (h *InvoiceHandler) Get(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	invoiceID, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid invoice ID", "INVALID_INVOICE_ID", nil)
	}

	result, err := h.invoiceFlow.GetInvoice(createRequestContext(c, "/api/v1/invoices/:id"), userID, invoiceID)
	if err != nil {
		if businessflow.IsInvoiceNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", "INVOICE_NOT_FOUND", nil)
		}

		log.Println("Invoice fetch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch invoice", "INVOICE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Invoice retrieved successfully", result)
}

// Update applies a partial update to an invoice
func (h *InvoiceHandler) Update(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	invoiceID, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid invoice ID", "INVALID_INVOICE_ID", nil)
	}

	var req dto.UpdateInvoiceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.invoiceFlow.UpdateInvoice(createRequestContext(c, "/api/v1/invoices/:id"), userID, invoiceID, &req, metadata)
	if err != nil {
		if businessflow.IsInvoiceNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", "INVOICE_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invoice update validation failed", "INVOICE_UPDATE_VALIDATION", err.Error())
		}

		log.Println("Invoice update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Invoice update failed", "INVOICE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result.Invoice)
}

// Delete removes an invoice and its artifacts
func (h *InvoiceHandler) Delete(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	invoiceID, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid invoice ID", "INVALID_INVOICE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.invoiceFlow.DeleteInvoice(createRequestContext(c, "/api/v1/invoices/:id"), userID, invoiceID, metadata); err != nil {
		if businessflow.IsInvoiceNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", "INVOICE_NOT_FOUND", nil)
		}

		log.Println("Invoice deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Invoice deletion failed", "INVOICE_DELETE_FAILED", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Download serves the rendered PDF for an invoice
func (h *InvoiceHandler) Download(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	invoiceID, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid invoice ID", "INVALID_INVOICE_ID", nil)
	}

	filename, path, err := h.invoiceFlow.DownloadInvoice(createRequestContext(c, "/api/v1/invoices/:id/download"), userID, invoiceID)
	if err != nil {
		if businessflow.IsInvoiceNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", "INVOICE_NOT_FOUND", nil)
		}
		if businessflow.IsPDFNotReady(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice PDF is not ready yet", "PDF_NOT_READY", nil)
		}

		log.Println("Invoice download failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to download invoice", "INVOICE_DOWNLOAD_FAILED", nil)
	}

	return c.Download(path, filename)
}

// SendEmail dispatches an invoice to the client by email
func (h *InvoiceHandler) SendEmail(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	invoiceID, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid invoice ID", "INVALID_INVOICE_ID", nil)
	}

	var req dto.SendInvoiceEmailRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		if err := h.validator.Struct(&req); err != nil {
			var validationErrors []string
			for _, err := range err.(validator.ValidationErrors) {
				validationErrors = append(validationErrors, getValidationErrorMessage(err))
			}
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
		}
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.emailFlow.SendInvoiceEmail(createRequestContext(c, "/api/v1/invoices/:id/send-email"), userID, invoiceID, &req, metadata)
	if err != nil {
		if businessflow.IsInvoiceNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", "INVOICE_NOT_FOUND", nil)
		}
		if businessflow.IsPDFNotReady(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Invoice PDF is not ready yet", "PDF_NOT_READY", nil)
		}
		if businessflow.IsRecipientRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Recipient email is required", "RECIPIENT_REQUIRED", nil)
		}
		if businessflow.IsEmailRateLimited(err) {
			c.Set("Retry-After", strconv.Itoa(businessflow.RetryAfterSeconds(err)))
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "Email rate limit exceeded", "EMAIL_RATE_LIMITED", fiber.Map{
				"retry_after": businessflow.RetryAfterSeconds(err),
			})
		}
		if businessflow.IsEmailDeliveryFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Email delivery failed", "EMAIL_DELIVERY_FAILED", nil)
		}

		log.Println("Invoice email failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send invoice email", "EMAIL_SEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

func parseIDParam(c fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id parameter: %q", raw)
	}
	return uint(id), nil
}
