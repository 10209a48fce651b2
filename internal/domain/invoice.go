package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Seller is the issuing business snapshot printed on an invoice.
type Seller struct {
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}

// Buyer is the invoiced client.
type Buyer struct {
	ClientName string `json:"clientName"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
}

type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// LineItems is persisted as a JSON document column.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bs, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}

func (l *LineItems) Scan(src interface{}) error {
	var bs []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("unsupported line items column type %T", src)
	}
	return json.Unmarshal(bs, l)
}

// Invoice is an issued bill. Subtotal, DiscountTotal, Total, TotalPieces
// and each item's Total are derived and recomputed on save.
type Invoice struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OwnerID               int64           `gorm:"index:idx_invoice_owner_date,priority:1" json:"owner,string"`
	InvoiceNumber         string          `gorm:"uniqueIndex;size:64" json:"invoiceNumber"`
	InvoiceDate           time.Time       `gorm:"index:idx_invoice_owner_date,priority:2" json:"invoiceDate"`
	BillFrom              Seller          `gorm:"embedded;embeddedPrefix:bill_from_" json:"billFrom"`
	BillTo                Buyer           `gorm:"embedded;embeddedPrefix:bill_to_" json:"billTo"`
	Items                 LineItems       `gorm:"type:text" json:"items"`
	Notes                 string          `json:"notes"`
	PaymentMode           string          `gorm:"size:32" json:"paymentMode"`
	Status                string          `gorm:"size:16;index" json:"status"`
	Subtotal              decimal.Decimal `gorm:"type:numeric" json:"subtotal"`
	InvoiceDiscount       decimal.Decimal `gorm:"type:numeric" json:"invoiceDiscount"`
	DirectAmountReduction decimal.Decimal `gorm:"type:numeric" json:"directAmountReduction"`
	DiscountTotal         decimal.Decimal `gorm:"type:numeric" json:"discountTotal"`
	Total                 decimal.Decimal `gorm:"type:numeric" json:"total"`
	TotalPieces           int             `json:"totalPieces"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// TableName Specify table name
func (Invoice) TableName() string {
	return "invoice"
}

// Clone returns a copy that shares no slices with i.
func (i *Invoice) Clone() *Invoice {
	c := *i
	if i.Items != nil {
		c.Items = make(LineItems, len(i.Items))
		copy(c.Items, i.Items)
	}
	return &c
}

// Validate checks the write-time constraints of an invoice whose status
// has already been normalized.
func (i *Invoice) Validate() error {
	if len(i.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for idx, item := range i.Items {
		if !IsCatalogItem(item.Name) {
			return fmt.Errorf("%w: items[%d]: unknown item name %q", ErrValidation, idx, item.Name)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d]: quantity must be at least 1", ErrValidation, idx)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: items[%d]: unit price must not be negative", ErrValidation, idx)
		}
	}
	if i.DirectAmountReduction.IsNegative() {
		return fmt.Errorf("%w: direct amount reduction must not be negative", ErrValidation)
	}
	if strings.TrimSpace(i.BillTo.ClientName) == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if strings.TrimSpace(i.BillTo.Phone) == "" {
		return fmt.Errorf("%w: client phone is required", ErrValidation)
	}
	if !IsPaymentMode(i.PaymentMode) {
		return fmt.Errorf("%w: unsupported payment mode %q", ErrValidation, i.PaymentMode)
	}
	if i.Status != StatusPaid && i.Status != StatusUnpaid {
		return fmt.Errorf("%w: unsupported status %q", ErrValidation, i.Status)
	}
	return nil
}
