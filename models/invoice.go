// Package models contains domain entities and business models for the invoicing system
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// Supported invoice languages
const (
	InvoiceLanguageArabic  = "ar"
	InvoiceLanguageEnglish = "en"
)

// Supported invoice currencies
const (
	CurrencyMAD = "MAD"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencySAR = "SAR"
	CurrencyAED = "AED"
)

func IsValidInvoiceStatus(status string) bool {
	switch status {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

func IsValidInvoiceLanguage(lang string) bool {
	return lang == InvoiceLanguageArabic || lang == InvoiceLanguageEnglish
}

func IsValidInvoiceCurrency(currency string) bool {
	switch currency {
	case CurrencyMAD, CurrencyUSD, CurrencyEUR, CurrencySAR, CurrencyAED:
		return true
	}
	return false
}

// LineItem is one row of an invoice. Items are stored as an ordered JSON
// array on the invoice and are immutable after creation.
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Invoice struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_invoices_uuid" json:"uuid"`
	InvoiceNumber string    `gorm:"size:30;not null;uniqueIndex:uk_invoices_number" json:"invoice_number"`
	UserID        uint      `gorm:"not null;index:idx_invoices_user_id" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID;references:ID" json:"-"`

	// Client block, printed on the rendered invoice
	ClientName    string  `gorm:"size:255;not null" json:"client_name"`
	ClientEmail   string  `gorm:"size:255;not null" json:"client_email"`
	ClientPhone   *string `gorm:"size:20" json:"client_phone,omitempty"`
	ClientAddress *string `gorm:"size:500" json:"client_address,omitempty"`

	Language string `gorm:"size:2;not null;default:ar" json:"language"`
	Currency string `gorm:"size:3;not null;default:MAD" json:"currency"`

	// Ordered line items, fixed at creation time
	Items json.RawMessage `gorm:"type:jsonb;not null" json:"items"`

	// Derived money fields, recomputed on every write that could affect them
	Subtotal       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"tax_amount"`
	DiscountRate   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	// Artifact paths stay nil until the background worker renders them
	PDFPath    *string `gorm:"size:500" json:"pdf_path,omitempty"`
	QRCodePath *string `gorm:"size:500" json:"qr_code_path,omitempty"`

	PaymentLink *string `gorm:"size:500" json:"payment_link,omitempty"`

	Status      string     `gorm:"size:20;not null;default:draft;index:idx_invoices_status" json:"status"`
	IsSentEmail *bool      `gorm:"default:false" json:"is_sent_email"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_invoices_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceFilter represents filter criteria for invoice queries
type InvoiceFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	InvoiceNumber *string
	UserID        *uint
	Status        *string
	ClientEmail   *string
	Currency      *string
	Language      *string
	IssuedAfter   *time.Time
	IssuedBefore  *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// LineItems decodes the stored items column. Order is preserved.
func (i *Invoice) LineItems() ([]LineItem, error) {
	if len(i.Items) == 0 {
		return nil, nil
	}
	var items []LineItem
	if err := json.Unmarshal(i.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to decode invoice items: %w", err)
	}
	return items, nil
}

// SetLineItems encodes the given items into the stored column.
func (i *Invoice) SetLineItems(items []LineItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode invoice items: %w", err)
	}
	i.Items = raw
	return nil
}

func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

func (i *Invoice) HasPDF() bool {
	return i.PDFPath != nil && *i.PDFPath != ""
}

func (i *Invoice) HasQRCode() bool {
	return i.QRCodePath != nil && *i.QRCodePath != ""
}
