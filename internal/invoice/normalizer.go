package invoice

import (
	"strings"

	"github.com/cottonstock/invoicedesk/internal/domain"
)

// Normalizer upgrades records written under earlier schema revisions to
// the current field set. It runs on every write and every read.
type Normalizer struct {
	// LegacyDiscountAsAmount copies invoiceDiscount into
	// directAmountReduction without unit conversion.
	LegacyDiscountAsAmount bool
}

// Normalize rewrites inv in place and reports whether anything changed.
// Normalize is idempotent.
func (n Normalizer) Normalize(inv *domain.Invoice) bool {
	if inv == nil {
		return false
	}
	changed := false

	if status := normalizeStatus(inv.Status); status != inv.Status {
		inv.Status = status
		changed = true
	}

	if n.LegacyDiscountAsAmount && inv.InvoiceDiscount.IsPositive() && inv.DirectAmountReduction.IsZero() {
		inv.DirectAmountReduction = inv.InvoiceDiscount
		changed = true
	}

	if inv.TotalPieces == 0 && len(inv.Items) > 0 {
		if pieces := Calculate(inv.Items, inv.DirectAmountReduction).TotalPieces; pieces != 0 {
			inv.TotalPieces = pieces
			changed = true
		}
	}
	return changed
}

// normalizeStatus maps legacy and miscased values onto Unpaid/Paid.
// Unknown values are returned untouched so validation can reject them.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unpaid", "pending", "overdue":
		return domain.StatusUnpaid
	case "paid":
		return domain.StatusPaid
	}
	return s
}
