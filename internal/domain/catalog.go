package domain

import "strings"

// Invoice status values. Pending and Overdue only exist in legacy records.
const (
	StatusUnpaid  = "Unpaid"
	StatusPaid    = "Paid"
	StatusPending = "Pending"
	StatusOverdue = "Overdue"
)

const (
	PaymentCash         = "Cash"
	PaymentOnline       = "Online"
	PaymentCard         = "Card"
	PaymentCheque       = "Cheque"
	PaymentUPI          = "UPI"
	PaymentBankTransfer = "Bank Transfer"
)

const OtherItem = "Others"

// ItemCatalog is the closed set of product names a line item may carry.
var ItemCatalog = []string{
	"Boys T-shirt",
	"Boys Shorts",
	"Boys Denim Shorts",
	"Boys IMP",
	"Boys Jeans",
	"Boys Shirt",
	"Girls Jeans",
	"Girls Shirt",
	"Girls IMP",
	"Girls Top",
	"Girls Leggings",
	"Girls Shorts",
	"Doreme",
	"Girls Fancy Tshirt",
	"Girls Denim Shorts",
	OtherItem,
}

var PaymentModes = []string{
	PaymentCash, PaymentOnline, PaymentCard, PaymentCheque, PaymentUPI, PaymentBankTransfer,
}

var Statuses = []string{StatusUnpaid, StatusPaid}

func IsCatalogItem(name string) bool {
	return contains(ItemCatalog, name)
}

// MatchCatalogItem returns the catalog spelling of name, compared case
// insensitively, or Others when nothing matches.
func MatchCatalogItem(name string) string {
	name = strings.TrimSpace(name)
	for _, v := range ItemCatalog {
		if strings.EqualFold(v, name) {
			return v
		}
	}
	return OtherItem
}

func IsPaymentMode(mode string) bool {
	return contains(PaymentModes, mode)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
