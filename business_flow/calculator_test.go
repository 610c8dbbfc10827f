package businessflow

import (
	"testing"

	"github.com/fatoora-io/fatoora/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name string, quantity, unitPrice int64) models.LineItem {
	return models.LineItem{
		Name:      name,
		Quantity:  decimal.NewFromInt(quantity),
		UnitPrice: decimal.NewFromInt(unitPrice),
	}
}

func TestCalculateInvoiceTotals(t *testing.T) {
	t.Run("TaxAppliesToDiscountedBase", func(t *testing.T) {
		items := []models.LineItem{
			item("Consulting", 1, 15000),
			item("Hosting", 3, 2000),
		}

		totals, err := CalculateInvoiceTotals(items, decimal.NewFromInt(20), decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NotNil(t, totals)

		assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(21000)), "subtotal = %s", totals.Subtotal)
		assert.True(t, totals.DiscountAmount.Equal(decimal.NewFromInt(2100)), "discount = %s", totals.DiscountAmount)
		assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(3780)), "tax = %s", totals.TaxAmount)
		assert.True(t, totals.Total.Equal(decimal.NewFromInt(22680)), "total = %s", totals.Total)

		require.Len(t, totals.Items, 2)
		assert.True(t, totals.Items[0].Total.Equal(decimal.NewFromInt(15000)))
		assert.True(t, totals.Items[1].Total.Equal(decimal.NewFromInt(6000)))
	})

	t.Run("ZeroRates", func(t *testing.T) {
		items := []models.LineItem{item("Design", 2, 500)}

		totals, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		require.NoError(t, err)

		assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(1000)))
		assert.True(t, totals.DiscountAmount.IsZero())
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.Total.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("FractionalQuantityRounding", func(t *testing.T) {
		items := []models.LineItem{
			{
				Name:      "Hourly work",
				Quantity:  decimal.RequireFromString("2.5"),
				UnitPrice: decimal.RequireFromString("99.99"),
			},
		}

		totals, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		require.NoError(t, err)

		// 2.5 * 99.99 = 249.975, rounds half up to 249.98
		assert.True(t, totals.Items[0].Total.Equal(decimal.RequireFromString("249.98")), "line total = %s", totals.Items[0].Total)
		assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("249.98")))
	})

	t.Run("PreservesItemOrder", func(t *testing.T) {
		items := []models.LineItem{
			item("Zebra", 1, 10),
			item("Apple", 1, 20),
			item("Mango", 1, 30),
		}

		totals, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		require.Len(t, totals.Items, 3)
		assert.Equal(t, "Zebra", totals.Items[0].Name)
		assert.Equal(t, "Apple", totals.Items[1].Name)
		assert.Equal(t, "Mango", totals.Items[2].Name)
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 2, 100)}

		_, err := CalculateInvoiceTotals(items, decimal.NewFromInt(10), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, items[0].Total.IsZero(), "input slice must stay untouched")
	})

	t.Run("EmptyItems", func(t *testing.T) {
		_, err := CalculateInvoiceTotals(nil, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvoiceItemsRequired)
	})

	t.Run("NegativeTaxRate", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 1, 100)}
		_, err := CalculateInvoiceTotals(items, decimal.NewFromInt(-1), decimal.Zero)
		assert.ErrorIs(t, err, ErrRateOutOfRange)
	})

	t.Run("DiscountRateAboveHundred", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 1, 100)}
		_, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.NewFromInt(101))
		assert.ErrorIs(t, err, ErrRateOutOfRange)
	})

	t.Run("HundredPercentDiscount", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 1, 100)}

		totals, err := CalculateInvoiceTotals(items, decimal.NewFromInt(20), decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, totals.DiscountAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.Total.IsZero())
	})

	t.Run("MissingItemName", func(t *testing.T) {
		items := []models.LineItem{item("", 1, 100)}
		_, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, ErrItemNameRequired)
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 0, 100)}
		_, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, ErrItemQuantityInvalid)
	})

	t.Run("NegativeUnitPrice", func(t *testing.T) {
		items := []models.LineItem{item("Consulting", 1, -5)}
		_, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, ErrItemPriceInvalid)
	})

	t.Run("ZeroUnitPriceAllowed", func(t *testing.T) {
		items := []models.LineItem{item("Free sample", 1, 0)}
		totals, err := CalculateInvoiceTotals(items, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, totals.Total.IsZero())
	})
}
