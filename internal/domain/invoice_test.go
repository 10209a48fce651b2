package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInvoice() *Invoice {
	return &Invoice{
		BillTo:      Buyer{ClientName: "Asha", Phone: "9820000000"},
		PaymentMode: PaymentCash,
		Status:      StatusUnpaid,
		Items: LineItems{
			{Name: "Boys T-shirt", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestInvoiceValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Invoice)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Invoice) {}},
		{name: "no items", mutate: func(i *Invoice) { i.Items = nil }, wantErr: true},
		{name: "unknown item", mutate: func(i *Invoice) { i.Items[0].Name = "Hat" }, wantErr: true},
		{name: "zero quantity", mutate: func(i *Invoice) { i.Items[0].Quantity = 0 }, wantErr: true},
		{name: "negative price", mutate: func(i *Invoice) { i.Items[0].UnitPrice = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "free item", mutate: func(i *Invoice) { i.Items[0].UnitPrice = decimal.Zero }},
		{name: "negative reduction", mutate: func(i *Invoice) { i.DirectAmountReduction = decimal.NewFromInt(-5) }, wantErr: true},
		{name: "missing client", mutate: func(i *Invoice) { i.BillTo.ClientName = " " }, wantErr: true},
		{name: "missing phone", mutate: func(i *Invoice) { i.BillTo.Phone = "" }, wantErr: true},
		{name: "upi payment", mutate: func(i *Invoice) { i.PaymentMode = PaymentUPI }},
		{name: "bad payment", mutate: func(i *Invoice) { i.PaymentMode = "Barter" }, wantErr: true},
		{name: "legacy status not normalized", mutate: func(i *Invoice) { i.Status = StatusPending }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inv := validInvoice()
			tt.mutate(inv)
			err := inv.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLineItemsColumn(t *testing.T) {
	items := LineItems{{Name: "Doreme", Quantity: 3, UnitPrice: decimal.RequireFromString("12.5")}}
	v, err := items.Value()
	require.NoError(t, err)

	var back LineItems
	require.NoError(t, back.Scan([]byte(v.(string))))
	require.Len(t, back, 1)
	assert.True(t, back[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))

	require.Error(t, back.Scan(42))
}

func TestCloneDetachesItems(t *testing.T) {
	inv := validInvoice()
	c := inv.Clone()
	c.Items[0].Quantity = 9
	assert.Equal(t, 2, inv.Items[0].Quantity)
}

func TestMatchCatalogItem(t *testing.T) {
	assert.Equal(t, "Girls Top", MatchCatalogItem(" girls top "))
	assert.Equal(t, OtherItem, MatchCatalogItem("Socks"))
}
