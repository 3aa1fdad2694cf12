package money

import (
	"github.com/shopspring/decimal"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
)

// LineItem is one priced row of an invoice.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   Minor
}

// Totals is the result of ComputeInvoice. Lines[i] is the total of items[i].
type Totals struct {
	Lines    []Minor
	Subtotal Minor
	Tax      Minor
	Total    Minor
}

// ComputeInvoice prices items and applies taxRate.
//
// Each line total is quantity × unit price rounded half away from zero to a
// whole minor unit. Tax is computed once on the subtotal with the same rule.
// Total is always Subtotal + Tax.
func ComputeInvoice(items []LineItem, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, domainErrors.NewValidationError("taxRate", "must not be negative")
	}

	totals := Totals{Lines: make([]Minor, len(items))}
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return Totals{}, domainErrors.NewValidationError("items", "item %d has a negative quantity", i+1)
		}
		if item.UnitPrice < 0 {
			return Totals{}, domainErrors.NewValidationError("items", "item %d has a negative unit price", i+1)
		}

		line := item.Quantity.Mul(decimal.NewFromInt(int64(item.UnitPrice))).Round(0)
		totals.Lines[i] = Minor(line.IntPart())
		totals.Subtotal += totals.Lines[i]
	}

	totals.Tax = Minor(decimal.NewFromInt(int64(totals.Subtotal)).Mul(taxRate).Round(0).IntPart())
	totals.Total = totals.Subtotal + totals.Tax

	if totals.Total > MaxMinor {
		return Totals{}, domainErrors.NewValidationError("items", "invoice total exceeds the maximum chargeable amount")
	}
	return totals, nil
}
