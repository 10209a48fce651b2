package invoice

import (
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals holds the derived amounts of an invoice.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	Total         decimal.Decimal `json:"total"`
	TotalPieces   int             `json:"totalPieces"`
}

// Calculate derives the totals of items after subtracting reduction.
// Negative quantities, prices and reductions count as zero. Calculate
// never fails and does not modify items.
func Calculate(items []domain.LineItem, reduction decimal.Decimal) Totals {
	t := Totals{Subtotal: decimal.Zero}
	for _, item := range items {
		t.Subtotal = t.Subtotal.Add(lineTotal(item))
		if item.Quantity > 0 {
			t.TotalPieces += item.Quantity
		}
	}
	t.DiscountTotal = domain.ClampZero(reduction)
	t.Total = domain.ClampZero(t.Subtotal.Sub(t.DiscountTotal))
	return t
}

// ApplyTotals recomputes every derived field of inv, including each
// line item total, from its items and direct amount reduction.
func ApplyTotals(inv *domain.Invoice) {
	for i := range inv.Items {
		inv.Items[i].Total = lineTotal(inv.Items[i])
	}
	t := Calculate(inv.Items, inv.DirectAmountReduction)
	inv.Subtotal = t.Subtotal
	inv.DiscountTotal = t.DiscountTotal
	inv.Total = t.Total
	inv.TotalPieces = t.TotalPieces
}

func lineTotal(item domain.LineItem) decimal.Decimal {
	if item.Quantity <= 0 {
		return decimal.Zero
	}
	return domain.ClampZero(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
}
