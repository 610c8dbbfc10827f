// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/services"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ArtifactRequester asks the background worker to render a freshly
// created invoice's PDF and QR code.
type ArtifactRequester interface {
	Enqueue(invoiceID uint)
}

// InvoiceFlow handles the invoice lifecycle business logic
type InvoiceFlow interface {
	GenerateInvoice(ctx context.Context, userID uint, req *dto.GenerateInvoiceRequest, metadata *ClientMetadata) (*dto.GenerateInvoiceResponse, error)
	GetInvoice(ctx context.Context, userID, invoiceID uint) (*dto.InvoiceDTO, error)
	ListInvoices(ctx context.Context, userID uint, req *dto.ListInvoicesRequest) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, userID, invoiceID uint, req *dto.UpdateInvoiceRequest, metadata *ClientMetadata) (*dto.UpdateInvoiceResponse, error)
	DeleteInvoice(ctx context.Context, userID, invoiceID uint, metadata *ClientMetadata) error
	DownloadInvoice(ctx context.Context, userID, invoiceID uint) (filename, path string, err error)
	ExportInvoicesExcel(ctx context.Context, userID uint, status *string) (filename string, content []byte, err error)
}

// InvoiceFlowImpl implements the invoice business flow
type InvoiceFlowImpl struct {
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditLogRepository
	storage     services.ArtifactStorage
	artifacts   ArtifactRequester
	db          *gorm.DB
}

// NewInvoiceFlow creates a new invoice flow instance
func NewInvoiceFlow(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	storage services.ArtifactStorage,
	artifacts ArtifactRequester,
	db *gorm.DB,
) InvoiceFlow {
	return &InvoiceFlowImpl{
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		storage:     storage,
		artifacts:   artifacts,
		db:          db,
	}
}

// GenerateInvoice validates the request, computes totals and persists the
// invoice as a draft. Artifact rendering happens asynchronously, so the
// returned record carries no PDF or QR paths yet.
func (f *InvoiceFlowImpl) GenerateInvoice(ctx context.Context, userID uint, req *dto.GenerateInvoiceRequest, metadata *ClientMetadata) (*dto.GenerateInvoiceResponse, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	items, taxRate, discountRate, dueDate, err := f.parseGenerateRequest(req)
	if err != nil {
		return nil, NewBusinessError("INVOICE_VALIDATION_FAILED", "Invoice validation failed", err)
	}

	totals, err := CalculateInvoiceTotals(items, taxRate, discountRate)
	if err != nil {
		return nil, NewBusinessError("INVOICE_VALIDATION_FAILED", "Invoice validation failed", err)
	}

	language := req.Language
	if language == "" {
		language = models.InvoiceLanguageArabic
	}
	currency := req.Currency
	if currency == "" {
		currency = models.CurrencyMAD
	}

	var invoice *models.Invoice

	// The number draw is pre-checked against stored rows, but a concurrent
	// generate can still claim the same number first and trip the unique
	// index on commit. Redraw and retry instead of surfacing the collision.
	const maxCreateAttempts = 3
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			number, err := NextInvoiceNumber(txCtx, f.invoiceRepo, utils.UTCNow())
			if err != nil {
				return err
			}

			var paymentLink *string
			if user.PaymentLink != nil {
				link := fmt.Sprintf("%s?invoice=%s", *user.PaymentLink, number)
				paymentLink = &link
			}

			invoice = &models.Invoice{
				UUID:           uuid.New(),
				InvoiceNumber:  number,
				UserID:         userID,
				ClientName:     req.ClientName,
				ClientEmail:    req.ClientEmail,
				ClientPhone:    req.ClientPhone,
				ClientAddress:  req.ClientAddress,
				Language:       language,
				Currency:       currency,
				Subtotal:       totals.Subtotal,
				TaxRate:        taxRate,
				TaxAmount:      totals.TaxAmount,
				DiscountRate:   discountRate,
				DiscountAmount: totals.DiscountAmount,
				Total:          totals.Total,
				IssueDate:      utils.UTCNow(),
				DueDate:        dueDate,
				PaymentLink:    paymentLink,
				Status:         models.InvoiceStatusDraft,
				IsSentEmail:    utils.ToPtr(false),
				Notes:          req.Notes,
			}
			if err := invoice.SetLineItems(totals.Items); err != nil {
				return err
			}

			return f.invoiceRepo.Save(txCtx, invoice)
		})
		if err == nil || !isDuplicateKey(err) {
			break
		}
	}

	if err != nil {
		errMsg := fmt.Sprintf("Invoice creation failed: %s", err.Error())
		_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("INVOICE_CREATION_FAILED", "Invoice creation failed", err)
	}

	msg := fmt.Sprintf("Invoice created: %s", invoice.InvoiceNumber)
	_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceCreated, msg, true, nil, metadata)

	// Hand off PDF and QR rendering to the background worker
	if f.artifacts != nil {
		f.artifacts.Enqueue(invoice.ID)
	}

	return &dto.GenerateInvoiceResponse{
		Message: "Invoice created successfully",
		Invoice: ToInvoiceDTO(*invoice),
	}, nil
}

// GetInvoice returns one invoice scoped to its owner. A foreign or unknown
// invoice yields the same not-found error.
func (f *InvoiceFlowImpl) GetInvoice(ctx context.Context, userID, invoiceID uint) (*dto.InvoiceDTO, error) {
	invoice, err := f.fetchOwned(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	d := ToInvoiceDTO(*invoice)
	return &d, nil
}

// ListInvoices returns one page of the account's invoices, newest first
func (f *InvoiceFlowImpl) ListInvoices(ctx context.Context, userID uint, req *dto.ListInvoicesRequest) (*dto.ListInvoicesResponse, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Invalid page", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Invalid page size", ErrInvalidPageSize)
	}
	if req.Status != nil && !models.IsValidInvoiceStatus(*req.Status) {
		return nil, NewBusinessError("INVALID_STATUS", "Invalid invoice status", ErrInvalidStatus)
	}

	offset := (page - 1) * pageSize
	invoices, err := f.invoiceRepo.ListByUser(ctx, userID, req.Status, pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("INVOICE_LIST_FAILED", "Failed to list invoices", err)
	}

	total, err := f.invoiceRepo.CountByUser(ctx, userID, req.Status)
	if err != nil {
		return nil, NewBusinessError("INVOICE_LIST_FAILED", "Failed to count invoices", err)
	}

	dtos := make([]dto.InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		dtos = append(dtos, ToInvoiceDTO(*inv))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &dto.ListInvoicesResponse{
		Invoices: dtos,
		Pagination: dto.PaginationDTO{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

// UpdateInvoice applies a partial update. Items, totals and issue date are
// immutable; only client fields, status, notes and due date change.
func (f *InvoiceFlowImpl) UpdateInvoice(ctx context.Context, userID, invoiceID uint, req *dto.UpdateInvoiceRequest, metadata *ClientMetadata) (*dto.UpdateInvoiceResponse, error) {
	if req.ClientName == nil && req.ClientEmail == nil && req.ClientPhone == nil &&
		req.ClientAddress == nil && req.Status == nil && req.Notes == nil && req.DueDate == nil {
		return nil, NewBusinessError("INVOICE_UPDATE_REQUIRED", "Nothing to update", ErrInvoiceUpdateRequired)
	}

	var invoice *models.Invoice

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		invoice, err = f.invoiceRepo.ByIDAndUser(txCtx, invoiceID, userID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return ErrInvoiceNotFound
		}

		if req.ClientName != nil {
			invoice.ClientName = *req.ClientName
		}
		if req.ClientEmail != nil {
			invoice.ClientEmail = *req.ClientEmail
		}
		if req.ClientPhone != nil {
			invoice.ClientPhone = req.ClientPhone
		}
		if req.ClientAddress != nil {
			invoice.ClientAddress = req.ClientAddress
		}
		if req.Notes != nil {
			invoice.Notes = req.Notes
		}
		if req.DueDate != nil {
			due, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				// Date-only input is accepted too
				due, err = time.Parse("2006-01-02", *req.DueDate)
				if err != nil {
					return fmt.Errorf("invalid due date: %w", err)
				}
			}
			invoice.DueDate = &due
		}
		if req.Status != nil {
			if !models.IsValidInvoiceStatus(*req.Status) {
				return ErrInvalidStatus
			}
			applyStatus(invoice, *req.Status)
		}

		return f.invoiceRepo.Update(txCtx, invoice)
	})

	if err != nil {
		if IsInvoiceNotFound(err) || IsValidationError(err) {
			return nil, NewBusinessError("INVOICE_UPDATE_FAILED", "Invoice update failed", err)
		}
		errMsg := fmt.Sprintf("Invoice update failed: %s", err.Error())
		_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("INVOICE_UPDATE_FAILED", "Invoice update failed", err)
	}

	msg := fmt.Sprintf("Invoice updated: %s", invoice.InvoiceNumber)
	_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceUpdated, msg, true, nil, metadata)

	return &dto.UpdateInvoiceResponse{
		Message: "Invoice updated successfully",
		Invoice: ToInvoiceDTO(*invoice),
	}, nil
}

// DeleteInvoice removes the row and its rendered artifacts
func (f *InvoiceFlowImpl) DeleteInvoice(ctx context.Context, userID, invoiceID uint, metadata *ClientMetadata) error {
	var pdfPath, qrPath string

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		invoice, err := f.invoiceRepo.ByIDAndUser(txCtx, invoiceID, userID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return ErrInvoiceNotFound
		}

		if invoice.PDFPath != nil {
			pdfPath = *invoice.PDFPath
		}
		if invoice.QRCodePath != nil {
			qrPath = *invoice.QRCodePath
		}

		return f.invoiceRepo.Delete(txCtx, invoice.ID)
	})

	if err != nil {
		if !IsInvoiceNotFound(err) {
			errMsg := fmt.Sprintf("Invoice deletion failed: %s", err.Error())
			_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceDeleted, errMsg, false, &errMsg, metadata)
		}
		return NewBusinessError("INVOICE_DELETE_FAILED", "Invoice deletion failed", err)
	}

	// Artifact files go after the row; a leftover file is harmless
	f.storage.Remove(pdfPath, qrPath)

	msg := fmt.Sprintf("Invoice deleted: %d", invoiceID)
	_ = f.createAuditLog(ctx, userID, models.AuditActionInvoiceDeleted, msg, true, nil, metadata)

	return nil
}

// DownloadInvoice returns the rendered PDF location for the handler to serve
func (f *InvoiceFlowImpl) DownloadInvoice(ctx context.Context, userID, invoiceID uint) (string, string, error) {
	invoice, err := f.fetchOwned(ctx, userID, invoiceID)
	if err != nil {
		return "", "", err
	}

	if !invoice.HasPDF() || !f.storage.Exists(*invoice.PDFPath) {
		return "", "", NewBusinessError("PDF_NOT_READY", "Invoice PDF is not ready", ErrPDFNotReady)
	}

	filename := fmt.Sprintf("%s.pdf", invoice.InvoiceNumber)
	return filename, *invoice.PDFPath, nil
}

// ExportInvoicesExcel builds a workbook of the account's invoices
func (f *InvoiceFlowImpl) ExportInvoicesExcel(ctx context.Context, userID uint, status *string) (string, []byte, error) {
	if status != nil && !models.IsValidInvoiceStatus(*status) {
		return "", nil, NewBusinessError("INVALID_STATUS", "Invalid invoice status", ErrInvalidStatus)
	}

	invoices, err := f.invoiceRepo.ListByUser(ctx, userID, status, 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("INVOICE_EXPORT_FAILED", "Failed to fetch invoices for export", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "invoices"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"invoice_number", "status", "client_name", "client_email", "language", "currency", "subtotal", "discount_rate", "discount_amount", "tax_rate", "tax_amount", "total", "issue_date", "due_date", "email_sent_at", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, inv := range invoices {
		dueDate := ""
		if inv.DueDate != nil {
			dueDate = inv.DueDate.UTC().Format(time.RFC3339)
		}
		emailSentAt := ""
		if inv.EmailSentAt != nil {
			emailSentAt = inv.EmailSentAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			inv.InvoiceNumber,
			inv.Status,
			inv.ClientName,
			inv.ClientEmail,
			inv.Language,
			inv.Currency,
			inv.Subtotal.StringFixed(2),
			inv.DiscountRate.String(),
			inv.DiscountAmount.StringFixed(2),
			inv.TaxRate.String(),
			inv.TaxAmount.StringFixed(2),
			inv.Total.StringFixed(2),
			inv.IssueDate.UTC().Format(time.RFC3339),
			dueDate,
			emailSentAt,
			inv.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("invoices_%s.xlsx", utils.UTCNow().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// applyStatus sets the new status and stamps the email fields on the first
// transition into sent.
func applyStatus(invoice *models.Invoice, status string) {
	if status == models.InvoiceStatusSent && invoice.Status != models.InvoiceStatusSent && invoice.EmailSentAt == nil {
		invoice.IsSentEmail = utils.ToPtr(true)
		invoice.EmailSentAt = utils.UTCNowPtr()
	}
	invoice.Status = status
}

// Private helper methods

func (f *InvoiceFlowImpl) fetchOwned(ctx context.Context, userID, invoiceID uint) (*models.Invoice, error) {
	invoice, err := f.invoiceRepo.ByIDAndUser(ctx, invoiceID, userID)
	if err != nil {
		return nil, NewBusinessError("INVOICE_FETCH_FAILED", "Failed to fetch invoice", err)
	}
	if invoice == nil {
		return nil, NewBusinessError("INVOICE_NOT_FOUND", "Invoice not found", ErrInvoiceNotFound)
	}
	return invoice, nil
}

func (f *InvoiceFlowImpl) parseGenerateRequest(req *dto.GenerateInvoiceRequest) ([]models.LineItem, decimal.Decimal, decimal.Decimal, *time.Time, error) {
	var zero decimal.Decimal

	if req.Language != "" && !models.IsValidInvoiceLanguage(req.Language) {
		return nil, zero, zero, nil, ErrInvalidLanguage
	}
	if req.Currency != "" && !models.IsValidInvoiceCurrency(req.Currency) {
		return nil, zero, zero, nil, ErrInvalidCurrency
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return nil, zero, zero, nil, ErrItemQuantityInvalid
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, zero, zero, nil, ErrItemPriceInvalid
		}
		items = append(items, models.LineItem{
			Name:        it.Name,
			Description: it.Description,
			Quantity:    qty,
			UnitPrice:   price,
		})
	}

	taxRate, err := parseRate(req.TaxRate)
	if err != nil {
		return nil, zero, zero, nil, err
	}
	discountRate, err := parseRate(req.DiscountRate)
	if err != nil {
		return nil, zero, zero, nil, err
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			due, err = time.Parse("2006-01-02", *req.DueDate)
			if err != nil {
				return nil, zero, zero, nil, fmt.Errorf("invalid due date: %w", err)
			}
		}
		dueDate = &due
	}

	return items, taxRate, discountRate, dueDate, nil
}

func parseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrRateOutOfRange
	}
	return rate, nil
}

func (f *InvoiceFlowImpl) createAuditLog(ctx context.Context, userID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
