// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/services"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/fatoora-io/fatoora/utils"
	"gorm.io/gorm"
)

// EmailFlow handles invoice email delivery with per-account rate limiting
type EmailFlow interface {
	SendInvoiceEmail(ctx context.Context, userID, invoiceID uint, req *dto.SendInvoiceEmailRequest, metadata *ClientMetadata) (*dto.SendInvoiceEmailResponse, error)
}

// EmailFlowImpl implements the email delivery business flow
type EmailFlowImpl struct {
	invoiceRepo  repository.InvoiceRepository
	userRepo     repository.UserRepository
	emailLogRepo repository.EmailLogRepository
	auditRepo    repository.AuditLogRepository
	notifier     services.NotificationService
	limiter      services.RateLimiter
	storage      services.ArtifactStorage
	db           *gorm.DB
}

// NewEmailFlow creates a new email flow instance
func NewEmailFlow(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	emailLogRepo repository.EmailLogRepository,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	limiter services.RateLimiter,
	storage services.ArtifactStorage,
	db *gorm.DB,
) EmailFlow {
	return &EmailFlowImpl{
		invoiceRepo:  invoiceRepo,
		userRepo:     userRepo,
		emailLogRepo: emailLogRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
		limiter:      limiter,
		storage:      storage,
		db:           db,
	}
}

// SendInvoiceEmail checks the rate limit, consumes a permit, marks the
// invoice as sent and dispatches the message in the background. A permit
// stays consumed even when SMTP delivery later fails; the outcome lands in
// the email log either way.
func (f *EmailFlowImpl) SendInvoiceEmail(ctx context.Context, userID, invoiceID uint, req *dto.SendInvoiceEmailRequest, metadata *ClientMetadata) (*dto.SendInvoiceEmailResponse, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	invoice, err := f.invoiceRepo.ByIDAndUser(ctx, invoiceID, userID)
	if err != nil {
		return nil, NewBusinessError("INVOICE_FETCH_FAILED", "Failed to fetch invoice", err)
	}
	if invoice == nil {
		return nil, NewBusinessError("INVOICE_NOT_FOUND", "Invoice not found", ErrInvoiceNotFound)
	}

	if !invoice.HasPDF() || !f.storage.Exists(*invoice.PDFPath) {
		return nil, NewBusinessError("PDF_NOT_READY", "Invoice PDF is not ready", ErrPDFNotReady)
	}

	recipient := strings.TrimSpace(invoice.ClientEmail)
	if req != nil && req.Recipient != nil && strings.TrimSpace(*req.Recipient) != "" {
		recipient = strings.TrimSpace(*req.Recipient)
	}
	if recipient == "" {
		return nil, NewBusinessError("RECIPIENT_REQUIRED", "Recipient email is required", ErrRecipientRequired)
	}

	limit, err := f.limiter.Allow(ctx, fmt.Sprintf("email:%d", userID))
	if err != nil {
		return nil, NewBusinessError("RATE_LIMIT_CHECK_FAILED", "Failed to check email rate limit", err)
	}
	if !limit.Allowed {
		return nil, NewBusinessError("EMAIL_RATE_LIMITED", "Email rate limit exceeded",
			&RateLimitError{RetryAfter: limit.RetryAfter})
	}

	subject := emailSubject(invoice)
	emailLog := &models.EmailLog{
		UserID:    userID,
		InvoiceID: invoice.ID,
		Recipient: recipient,
		Subject:   subject,
		Succeeded: utils.ToPtr(false),
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		applyStatus(invoice, models.InvoiceStatusSent)
		if err := f.invoiceRepo.Update(txCtx, invoice); err != nil {
			return err
		}
		return f.emailLogRepo.Save(txCtx, emailLog)
	})
	if err != nil {
		return nil, NewBusinessError("EMAIL_SEND_FAILED", "Failed to record email delivery", err)
	}

	var customMessage string
	if req != nil && req.Message != nil {
		customMessage = *req.Message
	}

	// SMTP round trips are slow; deliver off the request path
	go f.deliver(*invoice, *user, emailLog.ID, recipient, subject, customMessage, metadata)

	return &dto.SendInvoiceEmailResponse{
		Message:        "Invoice email queued for delivery",
		Recipient:      recipient,
		RemainingSends: limit.Remaining,
	}, nil
}

func (f *EmailFlowImpl) deliver(invoice models.Invoice, user models.User, logID uint, recipient, subject, customMessage string, metadata *ClientMetadata) {
	ctx := context.Background()

	msg := services.EmailMessage{
		To:             recipient,
		Subject:        subject,
		Body:           emailBody(&invoice, &user, customMessage),
		AttachmentPath: *invoice.PDFPath,
	}

	if err := f.notifier.SendEmail(msg); err != nil {
		log.Printf("invoice email delivery failed for %s: %v", invoice.InvoiceNumber, err)

		errMsg := err.Error()
		if mErr := f.emailLogRepo.MarkResult(ctx, logID, false, &errMsg); mErr != nil {
			log.Printf("failed to record email failure for %s: %v", invoice.InvoiceNumber, mErr)
		}
		auditMsg := fmt.Sprintf("Email delivery failed for invoice %s: %s", invoice.InvoiceNumber, errMsg)
		_ = f.createAuditLog(ctx, user.ID, models.AuditActionEmailFailed, auditMsg, false, &errMsg, metadata)
		return
	}

	if err := f.emailLogRepo.MarkResult(ctx, logID, true, nil); err != nil {
		log.Printf("failed to record email success for %s: %v", invoice.InvoiceNumber, err)
	}
	auditMsg := fmt.Sprintf("Invoice %s emailed to %s", invoice.InvoiceNumber, recipient)
	_ = f.createAuditLog(ctx, user.ID, models.AuditActionEmailSent, auditMsg, true, nil, metadata)
}

func emailSubject(invoice *models.Invoice) string {
	if invoice.Language == models.InvoiceLanguageArabic {
		return fmt.Sprintf("فاتورة رقم %s", invoice.InvoiceNumber)
	}
	return fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
}

func emailBody(invoice *models.Invoice, user *models.User, customMessage string) string {
	total := utils.FormatAmount(invoice.Total, invoice.Currency, invoice.Language)
	issueDate := utils.FormatDate(invoice.IssueDate, invoice.Language)

	var b strings.Builder
	if invoice.Language == models.InvoiceLanguageArabic {
		fmt.Fprintf(&b, "مرحباً %s،\n\n", invoice.ClientName)
		fmt.Fprintf(&b, "تجدون مرفقاً الفاتورة رقم %s الصادرة بتاريخ %s.\n", invoice.InvoiceNumber, issueDate)
		fmt.Fprintf(&b, "المبلغ الإجمالي: %s\n", total)
		if invoice.PaymentLink != nil {
			fmt.Fprintf(&b, "رابط الدفع: %s\n", *invoice.PaymentLink)
		}
		if customMessage != "" {
			fmt.Fprintf(&b, "\n%s\n", customMessage)
		}
		fmt.Fprintf(&b, "\nمع أطيب التحيات،\n%s\n", user.DisplayName())
	} else {
		fmt.Fprintf(&b, "Hello %s,\n\n", invoice.ClientName)
		fmt.Fprintf(&b, "Please find attached invoice %s issued on %s.\n", invoice.InvoiceNumber, issueDate)
		fmt.Fprintf(&b, "Total amount: %s\n", total)
		if invoice.PaymentLink != nil {
			fmt.Fprintf(&b, "Payment link: %s\n", *invoice.PaymentLink)
		}
		if customMessage != "" {
			fmt.Fprintf(&b, "\n%s\n", customMessage)
		}
		fmt.Fprintf(&b, "\nBest regards,\n%s\n", user.DisplayName())
	}
	return b.String()
}

func (f *EmailFlowImpl) createAuditLog(ctx context.Context, userID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
