// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fatoora-io/fatoora/models"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession, models.UserSessionFilter]
}

// NewUserSessionRepository creates a new session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession, models.UserSessionFilter](db),
	}
}

func (r *UserSessionRepositoryImpl) applyFilter(db *gorm.DB, f models.UserSessionFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *f.CorrelationID)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.IPAddress != nil {
		db = db.Where("ip_address = ?", *f.IPAddress)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	if f.ExpiresAfter != nil {
		db = db.Where("expires_at >= ?", *f.ExpiresAfter)
	}
	if f.ExpiresBefore != nil {
		db = db.Where("expires_at < ?", *f.ExpiresBefore)
	}
	return db
}

func (r *UserSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.UserSessionFilter, orderBy string, limit, offset int) ([]*models.UserSession, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UserSession{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.UserSession
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find sessions by filter: %w", err)
	}
	return rows, nil
}

func (r *UserSessionRepositoryImpl) Count(ctx context.Context, filter models.UserSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UserSession{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (r *UserSessionRepositoryImpl) Exists(ctx context.Context, filter models.UserSessionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// BySessionToken retrieves a session by its access token
func (r *UserSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)
	var session models.UserSession
	err := db.Where("session_token = ?", token).Last(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}
	return &session, nil
}

// ByRefreshToken retrieves a session by its refresh token
func (r *UserSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)
	var session models.UserSession
	err := db.Where("refresh_token = ?", token).Last(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}
	return &session, nil
}

// ExpireSession deactivates a single session
func (r *UserSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
	db := r.getDB(ctx)
	err := db.Model(&models.UserSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"is_active": false, "expires_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	return nil
}

// ExpireAllUserSessions deactivates every active session for a user
func (r *UserSessionRepositoryImpl) ExpireAllUserSessions(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)
	err := db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"is_active": false, "expires_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to expire user sessions: %w", err)
	}
	return nil
}

// CleanupExpiredSessions deactivates sessions past their expiry
func (r *UserSessionRepositoryImpl) CleanupExpiredSessions(ctx context.Context) error {
	db := r.getDB(ctx)
	err := db.Model(&models.UserSession{}).
		Where("expires_at < ? AND is_active = ?", time.Now().UTC(), true).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return nil
}
