// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/fatoora-io/fatoora/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for user accounts
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// InvoiceStatusCount is one row of the per-status aggregation behind account stats.
type InvoiceStatusCount struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

// InvoiceRepository defines operations for invoices
type InvoiceRepository interface {
	Repository[models.Invoice, models.InvoiceFilter]
	ByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error)
	ByIDAndUser(ctx context.Context, invoiceID, userID uint) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uint, status *string, limit, offset int) ([]*models.Invoice, error)
	CountByUser(ctx context.Context, userID uint, status *string) (int64, error)
	Update(ctx context.Context, invoice *models.Invoice) error
	UpdateArtifactPaths(ctx context.Context, invoiceID uint, pdfPath, qrCodePath *string) error
	Delete(ctx context.Context, invoiceID uint) error
	ListMissingArtifacts(ctx context.Context, limit int) ([]*models.Invoice, error)
	StatusCountsByUser(ctx context.Context, userID uint) ([]InvoiceStatusCount, error)
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllUserSessions(ctx context.Context, userID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// EmailLogRepository defines operations for email delivery logs
type EmailLogRepository interface {
	Repository[models.EmailLog, models.EmailLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.EmailLog, error)
	CountByUserSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	MarkResult(ctx context.Context, logID uint, succeeded bool, errorMessage *string) error
}
