// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/fatoora-io/fatoora/models"
	"gorm.io/gorm"
)

// InvoiceRepositoryImpl implements InvoiceRepository interface
type InvoiceRepositoryImpl struct {
	*BaseRepository[models.Invoice, models.InvoiceFilter]
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &InvoiceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Invoice, models.InvoiceFilter](db),
	}
}

func (r *InvoiceRepositoryImpl) applyFilter(db *gorm.DB, f models.InvoiceFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.InvoiceNumber != nil {
		db = db.Where("invoice_number = ?", *f.InvoiceNumber)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.ClientEmail != nil {
		db = db.Where("client_email = ?", *f.ClientEmail)
	}
	if f.Currency != nil {
		db = db.Where("currency = ?", *f.Currency)
	}
	if f.Language != nil {
		db = db.Where("language = ?", *f.Language)
	}
	if f.IssuedAfter != nil {
		db = db.Where("issue_date >= ?", *f.IssuedAfter)
	}
	if f.IssuedBefore != nil {
		db = db.Where("issue_date < ?", *f.IssuedBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *InvoiceRepositoryImpl) ByFilter(ctx context.Context, filter models.InvoiceFilter, orderBy string, limit, offset int) ([]*models.Invoice, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Invoice{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find invoices by filter: %w", err)
	}
	return rows, nil
}

func (r *InvoiceRepositoryImpl) Count(ctx context.Context, filter models.InvoiceFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Invoice{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

func (r *InvoiceRepositoryImpl) Exists(ctx context.Context, filter models.InvoiceFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ByNumber retrieves an invoice by its unique invoice number
func (r *InvoiceRepositoryImpl) ByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	filter := models.InvoiceFilter{InvoiceNumber: &invoiceNumber}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice by number: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByIDAndUser retrieves an invoice only when it belongs to the given user.
// Missing rows and rows owned by someone else are indistinguishable here.
func (r *InvoiceRepositoryImpl) ByIDAndUser(ctx context.Context, invoiceID, userID uint) (*models.Invoice, error) {
	filter := models.InvoiceFilter{ID: &invoiceID, UserID: &userID}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice by id and user: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByUser retrieves a user's invoices, newest first, optionally filtered by status
func (r *InvoiceRepositoryImpl) ListByUser(ctx context.Context, userID uint, status *string, limit, offset int) ([]*models.Invoice, error) {
	filter := models.InvoiceFilter{UserID: &userID, Status: status}
	return r.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
}

// CountByUser returns how many invoices match the user and optional status
func (r *InvoiceRepositoryImpl) CountByUser(ctx context.Context, userID uint, status *string) (int64, error) {
	return r.Count(ctx, models.InvoiceFilter{UserID: &userID, Status: status})
}

// Update persists modified invoice fields
func (r *InvoiceRepositoryImpl) Update(ctx context.Context, invoice *models.Invoice) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(invoice).Error
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	return nil
}

// UpdateArtifactPaths records the rendered PDF and QR file locations
func (r *InvoiceRepositoryImpl) UpdateArtifactPaths(ctx context.Context, invoiceID uint, pdfPath, qrCodePath *string) error {
	db := r.getDB(ctx)
	updates := map[string]any{}
	if pdfPath != nil {
		updates["pdf_path"] = *pdfPath
	}
	if qrCodePath != nil {
		updates["qr_code_path"] = *qrCodePath
	}
	if len(updates) == 0 {
		return nil
	}
	err := db.Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update invoice artifact paths: %w", err)
	}
	return nil
}

// Delete removes an invoice row
func (r *InvoiceRepositoryImpl) Delete(ctx context.Context, invoiceID uint) error {
	db := r.getDB(ctx)
	err := db.Delete(&models.Invoice{}, invoiceID).Error
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// ListMissingArtifacts finds invoices whose PDF or QR code has not been rendered yet
func (r *InvoiceRepositoryImpl) ListMissingArtifacts(ctx context.Context, limit int) ([]*models.Invoice, error) {
	db := r.getDB(ctx)
	var rows []*models.Invoice
	query := db.Model(&models.Invoice{}).
		Where("pdf_path IS NULL OR qr_code_path IS NULL").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices missing artifacts: %w", err)
	}
	return rows, nil
}

// StatusCountsByUser aggregates invoice counts and totals per status for one account
func (r *InvoiceRepositoryImpl) StatusCountsByUser(ctx context.Context, userID uint) ([]InvoiceStatusCount, error) {
	db := r.getDB(ctx)
	var rows []InvoiceStatusCount
	err := db.Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoice status counts: %w", err)
	}
	return rows, nil
}
