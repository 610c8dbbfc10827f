// Package businessflow contains the core business logic and use cases for invoicing workflows
package businessflow

import (
	"github.com/fatoora-io/fatoora/models"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// InvoiceTotals is the result of the money pipeline for one invoice.
// All amounts are rounded to 2 decimal places, half up.
type InvoiceTotals struct {
	Items          []models.LineItem
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// CalculateInvoiceTotals computes an invoice's money fields from its line
// items and rates. The discount applies to the subtotal and tax applies to
// the discounted base. The function is pure: inputs are validated, never
// mutated, and the result does not depend on item order beyond the returned
// item slice preserving it.
func CalculateInvoiceTotals(items []models.LineItem, taxRate, discountRate decimal.Decimal) (*InvoiceTotals, error) {
	if len(items) == 0 {
		return nil, ErrInvoiceItemsRequired
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(oneHundred) {
		return nil, ErrRateOutOfRange
	}
	if discountRate.IsNegative() || discountRate.GreaterThan(oneHundred) {
		return nil, ErrRateOutOfRange
	}

	out := make([]models.LineItem, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Name == "" {
			return nil, ErrItemNameRequired
		}
		if !item.Quantity.IsPositive() {
			return nil, ErrItemQuantityInvalid
		}
		if item.UnitPrice.IsNegative() {
			return nil, ErrItemPriceInvalid
		}

		lineTotal := item.Quantity.Mul(item.UnitPrice).Round(2)
		out[i] = models.LineItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       lineTotal,
		}
		subtotal = subtotal.Add(lineTotal)
	}
	subtotal = subtotal.Round(2)

	discountAmount := subtotal.Mul(discountRate).Div(oneHundred).Round(2)
	taxableBase := subtotal.Sub(discountAmount)
	taxAmount := taxableBase.Mul(taxRate).Div(oneHundred).Round(2)
	total := taxableBase.Add(taxAmount).Round(2)

	return &InvoiceTotals{
		Items:          out,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		Total:          total,
	}, nil
}
