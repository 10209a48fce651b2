package invoice

import (
	"testing"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func canonical() *domain.Invoice {
	inv := &domain.Invoice{
		ID:          7,
		OwnerID:     1,
		Status:      domain.StatusUnpaid,
		PaymentMode: domain.PaymentCash,
		Items:       domain.LineItems{item("Boys Jeans", 2, "150")},
	}
	ApplyTotals(inv)
	return inv
}

func TestNormalizePendingOnlyChangesStatus(t *testing.T) {
	n := Normalizer{LegacyDiscountAsAmount: true}
	inv := canonical()
	inv.Status = domain.StatusPending
	want := canonical()

	assert.True(t, n.Normalize(inv))
	assert.Equal(t, want, inv)
}

func TestNormalizeStatusAliases(t *testing.T) {
	n := Normalizer{}
	for in, want := range map[string]string{
		"Pending": domain.StatusUnpaid,
		"overdue": domain.StatusUnpaid,
		"":        domain.StatusUnpaid,
		"paid":    domain.StatusPaid,
		"Paid":    domain.StatusPaid,
		"Void":    "Void",
	} {
		inv := canonical()
		inv.Status = in
		n.Normalize(inv)
		assert.Equal(t, want, inv.Status, in)
	}
}

func TestNormalizeLegacyDiscount(t *testing.T) {
	n := Normalizer{LegacyDiscountAsAmount: true}

	inv := canonical()
	inv.InvoiceDiscount = d("50")
	assert.True(t, n.Normalize(inv))
	assert.True(t, inv.DirectAmountReduction.Equal(d("50")))

	both := canonical()
	both.InvoiceDiscount = d("10")
	both.DirectAmountReduction = d("25")
	assert.False(t, n.Normalize(both))
	assert.True(t, both.DirectAmountReduction.Equal(d("25")))
}

func TestNormalizeLegacyDiscountDisabled(t *testing.T) {
	inv := canonical()
	inv.InvoiceDiscount = d("50")
	assert.False(t, Normalizer{}.Normalize(inv))
	assert.True(t, inv.DirectAmountReduction.IsZero())
}

func TestNormalizeRecomputesMissingPieces(t *testing.T) {
	inv := canonical()
	inv.TotalPieces = 0
	assert.True(t, Normalizer{}.Normalize(inv))
	assert.Equal(t, 2, inv.TotalPieces)

	empty := &domain.Invoice{Status: domain.StatusPaid}
	assert.False(t, Normalizer{}.Normalize(empty))
	assert.Equal(t, 0, empty.TotalPieces)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := Normalizer{LegacyDiscountAsAmount: true}
	records := []*domain.Invoice{
		canonical(),
		{Status: "Pending", InvoiceDiscount: d("12"), Items: domain.LineItems{item("Doreme", 3, "9")}},
		{Status: "overdue", Items: domain.LineItems{item("Doreme", 0, "9")}},
		{Status: "Void"},
		{},
	}
	for _, rec := range records {
		once := rec.Clone()
		n.Normalize(once)
		twice := once.Clone()
		assert.False(t, n.Normalize(twice))
		assert.Equal(t, once, twice)
	}
	assert.False(t, n.Normalize(nil))
}
