// Package tests contains integration tests for invoice email delivery
package tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatoora-io/fatoora/app/dto"
	"github.com/fatoora-io/fatoora/app/services"
	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	testingutil "github.com/fatoora-io/fatoora/testing"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingEmailProvider simulates an SMTP outage
type failingEmailProvider struct{}

func (p *failingEmailProvider) SendEmail(msg services.EmailMessage) error {
	return errors.New("smtp: connection refused")
}

func newEmailFlow(testDB *testingutil.TestDB, provider services.EmailProvider, limiter services.RateLimiter) businessflow.EmailFlow {
	invoiceRepo := repository.NewInvoiceRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	emailLogRepo := repository.NewEmailLogRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	notifier := services.NewNotificationService(provider)
	storage := services.NewLocalArtifactStorage()

	return businessflow.NewEmailFlow(invoiceRepo, userRepo, emailLogRepo, auditRepo, notifier, limiter, storage, testDB.DB)
}

// renderTestPDF writes a placeholder PDF and records its path on the invoice
func renderTestPDF(t *testing.T, testDB *testingutil.TestDB, invoiceID uint) string {
	t.Helper()
	pdfPath := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))
	invoiceRepo := repository.NewInvoiceRepository(testDB.DB)
	require.NoError(t, invoiceRepo.UpdateArtifactPaths(context.Background(), invoiceID, &pdfPath, nil))
	return pdfPath
}

func TestSendInvoiceEmail(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		invoiceRepo := repository.NewInvoiceRepository(testDB.DB)
		emailLogRepo := repository.NewEmailLogRepository(testDB.DB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		t.Run("SuccessfulSend", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(5, time.Hour))
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			result, err := flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, invoice.ClientEmail, result.Recipient)
			assert.Equal(t, 4, result.RemainingSends)

			// Marked as sent synchronously, before delivery completes
			updated, err := invoiceRepo.ByID(ctx, invoice.ID)
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.Equal(t, models.InvoiceStatusSent, updated.Status)
			assert.True(t, utils.IsTrue(updated.IsSentEmail))
			assert.NotNil(t, updated.EmailSentAt)

			// Delivery happens in the background; wait for the log to flip
			assert.Eventually(t, func() bool {
				logs, err := emailLogRepo.ListByUser(ctx, user.ID, 10, 0)
				if err != nil {
					return false
				}
				for _, l := range logs {
					if l.InvoiceID == invoice.ID && utils.IsTrue(l.Succeeded) {
						return true
					}
				}
				return false
			}, 5*time.Second, 50*time.Millisecond, "email log should record success")
		})

		t.Run("ExplicitRecipientOverridesClientEmail", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(5, time.Hour))
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			result, err := flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, &dto.SendInvoiceEmailRequest{
				Recipient: utils.ToPtr("accounting@example.com"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "accounting@example.com", result.Recipient)
		})

		t.Run("PDFNotReady", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(5, time.Hour))
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)

			_, err = flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsPDFNotReady(err))
		})

		t.Run("RateLimitExhaustion", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(2, time.Hour))
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			for i := 0; i < 2; i++ {
				_, err := flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
				require.NoError(t, err)
			}

			_, err = flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailRateLimited(err))
			assert.Greater(t, businessflow.RetryAfterSeconds(err), 0)
		})

		t.Run("DeliveryFailureIsLoggedAndPermitStaysConsumed", func(t *testing.T) {
			limiter := services.NewMemoryRateLimiter(1, time.Hour)
			flow := newEmailFlow(testDB, &failingEmailProvider{}, limiter)
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			result, err := flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.NoError(t, err, "dispatch succeeds even when SMTP later fails")
			assert.Equal(t, 0, result.RemainingSends)

			assert.Eventually(t, func() bool {
				logs, err := emailLogRepo.ListByUser(ctx, user.ID, 50, 0)
				if err != nil {
					return false
				}
				for _, l := range logs {
					if l.InvoiceID == invoice.ID && l.Succeeded != nil && !*l.Succeeded && l.ErrorMessage != nil {
						return true
					}
				}
				return false
			}, 5*time.Second, 50*time.Millisecond, "email log should record the failure")

			// The failed delivery does not refund the permit
			_, err = flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailRateLimited(err))
		})

		t.Run("NoRecipientAnywhere", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(5, time.Hour))
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			// Blank out the client email directly
			stored, err := invoiceRepo.ByID(ctx, invoice.ID)
			require.NoError(t, err)
			stored.ClientEmail = ""
			require.NoError(t, invoiceRepo.Update(ctx, stored))

			_, err = flow.SendInvoiceEmail(ctx, user.ID, invoice.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsRecipientRequired(err))
		})

		t.Run("ForeignInvoiceIsNotFound", func(t *testing.T) {
			flow := newEmailFlow(testDB, services.NewMockEmailProvider(), services.NewMemoryRateLimiter(5, time.Hour))
			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			renderTestPDF(t, testDB, invoice.ID)

			_, err = flow.SendInvoiceEmail(ctx, stranger.ID, invoice.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvoiceNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
