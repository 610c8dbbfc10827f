// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/fatoora-io/fatoora/models"
	testingutil "github.com/fatoora-io/fatoora/testing"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestInvoiceConstants(t *testing.T) {
	t.Run("Statuses", func(t *testing.T) {
		assert.Equal(t, "draft", models.InvoiceStatusDraft)
		assert.Equal(t, "sent", models.InvoiceStatusSent)
		assert.Equal(t, "paid", models.InvoiceStatusPaid)
		assert.Equal(t, "cancelled", models.InvoiceStatusCancelled)
	})

	t.Run("IsValidInvoiceStatus", func(t *testing.T) {
		for _, status := range []string{"draft", "sent", "paid", "cancelled"} {
			assert.True(t, models.IsValidInvoiceStatus(status), status)
		}
		assert.False(t, models.IsValidInvoiceStatus("archived"))
		assert.False(t, models.IsValidInvoiceStatus(""))
	})

	t.Run("IsValidInvoiceLanguage", func(t *testing.T) {
		assert.True(t, models.IsValidInvoiceLanguage("ar"))
		assert.True(t, models.IsValidInvoiceLanguage("en"))
		assert.False(t, models.IsValidInvoiceLanguage("fr"))
		assert.False(t, models.IsValidInvoiceLanguage(""))
	})

	t.Run("IsValidInvoiceCurrency", func(t *testing.T) {
		for _, currency := range []string{"MAD", "USD", "EUR", "SAR", "AED"} {
			assert.True(t, models.IsValidInvoiceCurrency(currency), currency)
		}
		assert.False(t, models.IsValidInvoiceCurrency("GBP"))
		assert.False(t, models.IsValidInvoiceCurrency("mad"))
	})
}

func TestUserModel(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "users", models.User{}.TableName())
	})

	t.Run("BuildPaymentLink", func(t *testing.T) {
		assert.Equal(t, "https://fatoora.io/pay/amina-7", models.BuildPaymentLink("https://fatoora.io", "amina", 7))
		assert.Equal(t, "https://fatoora.io/pay/amina-7", models.BuildPaymentLink("https://fatoora.io/", "amina", 7),
			"trailing slash must not double up")
	})

	t.Run("DisplayNamePrefersCompany", func(t *testing.T) {
		user := &models.User{
			Username:    "amina",
			FullName:    utils.ToPtr("Amina Benali"),
			CompanyName: utils.ToPtr("Atlas Trading SARL"),
		}
		assert.Equal(t, "Atlas Trading SARL", user.DisplayName())
	})

	t.Run("DisplayNameFallsBackToFullName", func(t *testing.T) {
		user := &models.User{
			Username: "amina",
			FullName: utils.ToPtr("Amina Benali"),
		}
		assert.Equal(t, "Amina Benali", user.DisplayName())
	})

	t.Run("DisplayNameFallsBackToUsername", func(t *testing.T) {
		user := &models.User{Username: "amina", CompanyName: utils.ToPtr("")}
		assert.Equal(t, "amina", user.DisplayName())
	})
}

func TestInvoiceModel(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "invoices", models.Invoice{}.TableName())
	})

	t.Run("LineItemsRoundTrip", func(t *testing.T) {
		invoice := &models.Invoice{}
		items := []models.LineItem{
			{
				Name:      "Consulting",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(15000),
				Total:     decimal.NewFromInt(15000),
			},
			{
				Name:        "Hosting",
				Description: "Annual plan",
				Quantity:    decimal.NewFromInt(3),
				UnitPrice:   decimal.NewFromInt(2000),
				Total:       decimal.NewFromInt(6000),
			},
		}

		require.NoError(t, invoice.SetLineItems(items))

		decoded, err := invoice.LineItems()
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		assert.Equal(t, "Consulting", decoded[0].Name)
		assert.Equal(t, "Hosting", decoded[1].Name)
		assert.Equal(t, "Annual plan", decoded[1].Description)
		assert.True(t, decoded[1].Total.Equal(decimal.NewFromInt(6000)))
	})

	t.Run("LineItemsEmptyColumn", func(t *testing.T) {
		invoice := &models.Invoice{}
		items, err := invoice.LineItems()
		require.NoError(t, err)
		assert.Nil(t, items)
	})

	t.Run("LineItemsCorruptColumn", func(t *testing.T) {
		invoice := &models.Invoice{Items: []byte("{broken")}
		_, err := invoice.LineItems()
		assert.Error(t, err)
	})

	t.Run("StatusHelpers", func(t *testing.T) {
		invoice := &models.Invoice{Status: models.InvoiceStatusDraft}
		assert.True(t, invoice.IsDraft())
		assert.False(t, invoice.IsPaid())

		invoice.Status = models.InvoiceStatusPaid
		assert.False(t, invoice.IsDraft())
		assert.True(t, invoice.IsPaid())
	})

	t.Run("ArtifactHelpers", func(t *testing.T) {
		invoice := &models.Invoice{}
		assert.False(t, invoice.HasPDF())
		assert.False(t, invoice.HasQRCode())

		invoice.PDFPath = utils.ToPtr("")
		assert.False(t, invoice.HasPDF(), "empty path counts as missing")

		invoice.PDFPath = utils.ToPtr("artifacts/inv.pdf")
		invoice.QRCodePath = utils.ToPtr("artifacts/inv.png")
		assert.True(t, invoice.HasPDF())
		assert.True(t, invoice.HasQRCode())
	})
}

func TestUserSessionModel(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "user_sessions", models.UserSession{}.TableName())
	})

	t.Run("IsExpired", func(t *testing.T) {
		session := &models.UserSession{ExpiresAt: time.Now().Add(time.Hour)}
		assert.False(t, session.IsExpired())

		session.ExpiresAt = time.Now().Add(-time.Hour)
		assert.True(t, session.IsExpired())
	})

	t.Run("IsValid", func(t *testing.T) {
		session := &models.UserSession{
			IsActive:  utils.ToPtr(true),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		assert.True(t, session.IsValid())

		session.IsActive = utils.ToPtr(false)
		assert.False(t, session.IsValid())

		session.IsActive = utils.ToPtr(true)
		session.ExpiresAt = time.Now().Add(-time.Minute)
		assert.False(t, session.IsValid())
	})
}

func TestAuditLogModel(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "audit_log", models.AuditLog{}.TableName())
	})

	t.Run("IsFailed", func(t *testing.T) {
		audit := &models.AuditLog{}
		assert.False(t, audit.IsFailed())

		audit.Success = utils.ToPtr(true)
		assert.False(t, audit.IsFailed())

		audit.Success = utils.ToPtr(false)
		assert.True(t, audit.IsFailed())
	})
}

func TestEmailLogModel(t *testing.T) {
	assert.Equal(t, "email_logs", models.EmailLog{}.TableName())
}

func TestModelPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CreateUser", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.NotEmpty(t, user.UUID)
			assert.True(t, utils.IsTrue(user.IsActive))
			require.NotNil(t, user.PaymentLink)
			assert.Contains(t, *user.PaymentLink, "/pay/")

			// Password is stored hashed
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("TestPass123")))
		})

		t.Run("CreateInvoiceWithItems", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)
			assert.NotZero(t, invoice.ID)
			assert.Equal(t, user.ID, invoice.UserID)
			assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
			assert.False(t, utils.IsTrue(invoice.IsSentEmail))
			assert.Nil(t, invoice.PDFPath)

			// Items survive the jsonb column round trip
			var stored models.Invoice
			require.NoError(t, testDB.DB.First(&stored, invoice.ID).Error)
			items, err := stored.LineItems()
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "Consulting", items[0].Name)
			assert.True(t, stored.Total.Equal(decimal.NewFromInt(22680)))
		})

		t.Run("CreateSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			session, err := fixtures.CreateTestSession(user.ID)
			require.NoError(t, err)
			assert.NotZero(t, session.ID)
			assert.True(t, session.IsValid())
		})

		t.Run("CreateEmailLog", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			invoice, err := fixtures.CreateTestInvoice(user.ID)
			require.NoError(t, err)

			emailLog, err := fixtures.CreateTestEmailLog(user.ID, invoice.ID, false)
			require.NoError(t, err)
			assert.NotZero(t, emailLog.ID)
			assert.False(t, utils.IsTrue(emailLog.Succeeded))
			require.NotNil(t, emailLog.ErrorMessage)
		})

		t.Run("CreateAuditLog", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			audit, err := fixtures.CreateTestAuditLog(&user.ID, models.AuditActionInvoiceCreated, true)
			require.NoError(t, err)
			assert.NotZero(t, audit.ID)
			assert.False(t, audit.IsFailed())
		})

		return nil
	})
	require.NoError(t, err)
}
