// Package testing provides test utilities and database setup for testing the invoicing system
package testing

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"

	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with a hashed password and payment link
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(10000000)
	username := fmt.Sprintf("seller_%d", suffix)
	fullName := "Amina Benali"
	companyName := "Atlas Trading SARL"
	phone := "+212612345678"
	address := "12 Rue Hassan II, Casablanca"

	user := &models.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("seller.%d@example.com", suffix),
		Username:     username,
		PasswordHash: string(hashedPassword),
		FullName:     &fullName,
		CompanyName:  &companyName,
		Phone:        &phone,
		Address:      &address,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	paymentLink := models.BuildPaymentLink("https://fatoora.io", user.Username, user.ID)
	user.PaymentLink = &paymentLink
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to set payment link on test user: %w", err)
	}

	return user, nil
}

// CreateTestInvoice creates a draft invoice for the given user with two line
// items and consistent computed totals.
func (tf *TestFixtures) CreateTestInvoice(userID uint) (*models.Invoice, error) {
	items := []models.LineItem{
		{
			Name:      "Consulting",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(15000),
			Total:     decimal.NewFromInt(15000),
		},
		{
			Name:      "Hosting",
			Quantity:  decimal.NewFromInt(3),
			UnitPrice: decimal.NewFromInt(2000),
			Total:     decimal.NewFromInt(6000),
		},
	}

	clientPhone := "+212698765432"
	dueDate := time.Now().UTC().Add(30 * 24 * time.Hour)

	invoice := &models.Invoice{
		UUID:           uuid.New(),
		InvoiceNumber:  fmt.Sprintf("INV-%s-%04d", time.Now().UTC().Format("20060102"), rand.Intn(10000)),
		UserID:         userID,
		ClientName:     "Karim El Fassi",
		ClientEmail:    fmt.Sprintf("client.%d@example.com", rand.Intn(10000000)),
		ClientPhone:    &clientPhone,
		Language:       models.InvoiceLanguageArabic,
		Currency:       models.CurrencyMAD,
		Subtotal:       decimal.NewFromInt(21000),
		TaxRate:        decimal.NewFromInt(20),
		TaxAmount:      decimal.NewFromInt(3780),
		DiscountRate:   decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromInt(2100),
		Total:          decimal.NewFromInt(22680),
		IssueDate:      time.Now().UTC(),
		DueDate:        &dueDate,
		Status:         models.InvoiceStatusDraft,
		IsSentEmail:    utils.ToPtr(false),
	}

	if err := invoice.SetLineItems(items); err != nil {
		return nil, fmt.Errorf("failed to encode test invoice items: %w", err)
	}

	if err := tf.DB.DB.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create test invoice: %w", err)
	}

	return invoice, nil
}

// CreateMultipleTestInvoices creates n invoices for the user, cycling statuses
// so pagination and filter tests have mixed data to work with.
func (tf *TestFixtures) CreateMultipleTestInvoices(userID uint, n int) ([]*models.Invoice, error) {
	statuses := []string{
		models.InvoiceStatusDraft,
		models.InvoiceStatusSent,
		models.InvoiceStatusPaid,
		models.InvoiceStatusCancelled,
	}

	var invoices []*models.Invoice
	for i := 0; i < n; i++ {
		invoice, err := tf.CreateTestInvoice(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to create invoice %d: %w", i, err)
		}

		invoice.Status = statuses[i%len(statuses)]
		if invoice.Status == models.InvoiceStatusSent {
			invoice.IsSentEmail = utils.ToPtr(true)
			sentAt := time.Now().UTC()
			invoice.EmailSentAt = &sentAt
		}

		if err := tf.DB.DB.Save(invoice).Error; err != nil {
			return nil, fmt.Errorf("failed to update invoice %d: %w", i, err)
		}

		invoices = append(invoices, invoice)
	}

	return invoices, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a test user session
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.UserSession{
		CorrelationID: uuid.New(),
		UserID:        userID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestEmailLog creates a delivery record for an invoice
func (tf *TestFixtures) CreateTestEmailLog(userID, invoiceID uint, succeeded bool) (*models.EmailLog, error) {
	emailLog := &models.EmailLog{
		UserID:    userID,
		InvoiceID: invoiceID,
		Recipient: fmt.Sprintf("recipient.%d@example.com", rand.Intn(10000000)),
		Subject:   "Invoice INV-20260101-0001",
		Succeeded: utils.ToPtr(succeeded),
	}

	if !succeeded {
		errorMessage := "smtp: connection refused"
		emailLog.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(emailLog).Error; err != nil {
		return nil, fmt.Errorf("failed to create test email log: %w", err)
	}

	return emailLog, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
