// Package models contains domain entities and business models for the invoicing system
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Username     string    `gorm:"size:50;not null;uniqueIndex:idx_users_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Seller profile, printed on invoices
	FullName    *string `gorm:"size:255" json:"full_name,omitempty"`
	CompanyName *string `gorm:"size:255" json:"company_name,omitempty"`
	Phone       *string `gorm:"size:20" json:"phone,omitempty"`
	Address     *string `gorm:"size:500" json:"address,omitempty"`

	// Public payment page for this account, derived once at registration
	PaymentLink *string `gorm:"size:500" json:"payment_link,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Invoices  []Invoice     `gorm:"foreignKey:UserID" json:"-"`
	Sessions  []UserSession `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs []AuditLog    `gorm:"foreignKey:UserID" json:"-"`
	EmailLogs []EmailLog    `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	Email          *string
	Username       *string
	IsActive       *bool
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	LastLoginAfter *time.Time
}

// BuildPaymentLink derives the public payment URL for a user. The slug is
// stable for the lifetime of the account since username and ID never change.
func BuildPaymentLink(baseURL, username string, id uint) string {
	return fmt.Sprintf("%s/pay/%s-%d", strings.TrimRight(baseURL, "/"), username, id)
}

// DisplayName is what appears in the seller block of rendered invoices.
func (u *User) DisplayName() string {
	if u.CompanyName != nil && *u.CompanyName != "" {
		return *u.CompanyName
	}
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}
