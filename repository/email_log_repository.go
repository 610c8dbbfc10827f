// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fatoora-io/fatoora/models"
	"gorm.io/gorm"
)

// EmailLogRepositoryImpl implements EmailLogRepository interface
type EmailLogRepositoryImpl struct {
	*BaseRepository[models.EmailLog, models.EmailLogFilter]
}

// NewEmailLogRepository creates a new email log repository
func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &EmailLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailLog, models.EmailLogFilter](db),
	}
}

func (r *EmailLogRepositoryImpl) applyFilter(db *gorm.DB, f models.EmailLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.InvoiceID != nil {
		db = db.Where("invoice_id = ?", *f.InvoiceID)
	}
	if f.Recipient != nil {
		db = db.Where("recipient = ?", *f.Recipient)
	}
	if f.Succeeded != nil {
		db = db.Where("succeeded = ?", *f.Succeeded)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *EmailLogRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailLogFilter, orderBy string, limit, offset int) ([]*models.EmailLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.EmailLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find email logs by filter: %w", err)
	}
	return rows, nil
}

func (r *EmailLogRepositoryImpl) Count(ctx context.Context, filter models.EmailLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count email logs: %w", err)
	}
	return count, nil
}

func (r *EmailLogRepositoryImpl) Exists(ctx context.Context, filter models.EmailLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ListByUser retrieves delivery attempts for one user, newest first
func (r *EmailLogRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.EmailLog, error) {
	return r.ByFilter(ctx, models.EmailLogFilter{UserID: &userID}, "created_at DESC", limit, offset)
}

// CountByUserSince counts delivery attempts inside the rate-limit window
func (r *EmailLogRepositoryImpl) CountByUserSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	return r.Count(ctx, models.EmailLogFilter{UserID: &userID, CreatedAfter: &since})
}

// MarkResult records the outcome of the SMTP dispatch for a logged attempt
func (r *EmailLogRepositoryImpl) MarkResult(ctx context.Context, logID uint, succeeded bool, errorMessage *string) error {
	db := r.getDB(ctx)
	updates := map[string]any{"succeeded": succeeded}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	err := db.Model(&models.EmailLog{}).
		Where("id = ?", logID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to mark email log result: %w", err)
	}
	return nil
}
