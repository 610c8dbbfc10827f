// Package models contains domain entities and business models for the invoicing system
package models

import "time"

// EmailLog records every invoice delivery attempt that passed the rate
// limiter. A row exists even when the SMTP transport later fails, so the
// consumed rate-limit slot always has a persisted trace.
type EmailLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_email_logs_user_id" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID;references:ID" json:"-"`
	InvoiceID    uint      `gorm:"not null;index:idx_email_logs_invoice_id" json:"invoice_id"`
	Invoice      Invoice   `gorm:"foreignKey:InvoiceID;references:ID" json:"-"`
	Recipient    string    `gorm:"size:255;not null" json:"recipient"`
	Subject      string    `gorm:"size:500;not null" json:"subject"`
	Succeeded    *bool     `gorm:"default:false;index:idx_email_logs_succeeded" json:"succeeded"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_email_logs_created_at" json:"created_at"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}

// EmailLogFilter represents filter criteria for email log queries
type EmailLogFilter struct {
	ID            *uint
	UserID        *uint
	InvoiceID     *uint
	Recipient     *string
	Succeeded     *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
