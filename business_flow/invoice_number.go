package businessflow

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/fatoora-io/fatoora/repository"
	"gorm.io/gorm"
)

var (
	invoiceNumberGenMutex sync.Mutex
)

func lockInvoiceNumberGen() {
	invoiceNumberGenMutex.Lock()
}

func unlockInvoiceNumberGen() {
	invoiceNumberGenMutex.Unlock()
}

// generateInvoiceSuffix returns a random 4-digit suffix, zero padded.
func generateInvoiceSuffix() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate invoice suffix: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// NextInvoiceNumber produces a unique number of the form INV-YYYYMMDD-XXXX.
// Generation is serialized and collisions against already stored numbers
// regenerate the suffix, so concurrent callers always end up with distinct
// numbers backed by the unique index on the column.
func NextInvoiceNumber(ctx context.Context, repo repository.InvoiceRepository, now time.Time) (string, error) {
	lockInvoiceNumberGen()
	defer unlockInvoiceNumberGen()

	datePart := now.UTC().Format("20060102")

	const maxAttempts = 20
	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix, err := generateInvoiceSuffix()
		if err != nil {
			return "", err
		}
		number := fmt.Sprintf("INV-%s-%s", datePart, suffix)

		existing, err := repo.ByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check invoice number uniqueness: %w", err)
		}
		if existing == nil {
			return number, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique invoice number after %d attempts", maxAttempts)
}

// isDuplicateKey reports whether err is a unique constraint violation. The
// ByNumber pre-check runs before the insert commits, so two transactions can
// still race to the same number and the loser only learns from the index.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}
