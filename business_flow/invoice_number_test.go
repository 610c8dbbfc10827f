package businessflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubInvoiceNumberRepo answers ByNumber from an in-memory set. The embedded
// interface panics for everything else, which is fine because number
// generation touches nothing but ByNumber.
type stubInvoiceNumberRepo struct {
	repository.InvoiceRepository
	issued  map[string]bool
	lookups int
}

func newStubInvoiceNumberRepo() *stubInvoiceNumberRepo {
	return &stubInvoiceNumberRepo{issued: make(map[string]bool)}
}

func (s *stubInvoiceNumberRepo) ByNumber(_ context.Context, number string) (*models.Invoice, error) {
	s.lookups++
	if s.issued[number] {
		return &models.Invoice{InvoiceNumber: number}, nil
	}
	return nil, nil
}

func TestGenerateInvoiceSuffix(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 100; i++ {
		suffix, err := generateInvoiceSuffix()
		require.NoError(t, err)
		assert.Regexp(t, pattern, suffix)
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("Format", func(t *testing.T) {
		repo := newStubInvoiceNumberRepo()
		now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

		number, err := NextInvoiceNumber(ctx, repo, now)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^INV-20260315-\d{4}$`), number)
	})

	t.Run("DatePartIsUTC", func(t *testing.T) {
		repo := newStubInvoiceNumberRepo()
		// 23:30 in UTC+2 is 21:30 UTC the same day, but 01:30 local on
		// the next day must still use the UTC date.
		loc := time.FixedZone("UTC+2", 2*60*60)
		now := time.Date(2026, 3, 16, 1, 30, 0, 0, loc)

		number, err := NextInvoiceNumber(ctx, repo, now)
		require.NoError(t, err)
		assert.Contains(t, number, "INV-20260315-")
	})

	t.Run("RegeneratesOnCollision", func(t *testing.T) {
		repo := newStubInvoiceNumberRepo()
		now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

		// Issue a batch sequentially, recording each number so later
		// draws that collide are forced to retry.
		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			number, err := NextInvoiceNumber(ctx, repo, now)
			require.NoError(t, err)
			assert.False(t, seen[number], "duplicate number %s", number)
			seen[number] = true
			repo.issued[number] = true
		}

		assert.GreaterOrEqual(t, repo.lookups, 200)
	})

	t.Run("ExhaustsAttempts", func(t *testing.T) {
		repo := newStubInvoiceNumberRepo()
		now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

		// Mark every possible suffix as taken so generation can never
		// succeed.
		datePart := now.Format("20060102")
		for i := 0; i < 10000; i++ {
			repo.issued[fmt.Sprintf("INV-%s-%04d", datePart, i)] = true
		}

		_, err := NextInvoiceNumber(ctx, repo, now)
		assert.Error(t, err)
	})
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("save failed: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "idx_invoices_invoice_number" (SQLSTATE 23505)`)))
	assert.False(t, isDuplicateKey(nil))
	assert.False(t, isDuplicateKey(errors.New("connection reset")))
}
