package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture() []*domain.Invoice {
	return []*domain.Invoice{{
		InvoiceNumber: "INV-9",
		InvoiceDate:   time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		BillTo:        domain.Buyer{ClientName: "Ravi, Traders", Phone: "99"},
		Items: domain.LineItems{
			{Name: "Boys Shorts", Quantity: 2},
			{Name: "Others", Quantity: 1},
		},
		TotalPieces:   3,
		PaymentMode:   domain.PaymentUPI,
		Status:        domain.StatusPaid,
		Subtotal:      decimal.NewFromInt(500),
		DiscountTotal: decimal.NewFromInt(50),
		Total:         decimal.NewFromInt(450),
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, exportFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(headers, ","), lines[0])
	assert.Contains(t, lines[1], `"Ravi, Traders"`)
	assert.Contains(t, lines[1], "Boys Shorts x2; Others x1")
	assert.Contains(t, lines[1], "500.00,50.00,450.00")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Invoice Number", f.GetCellValue(sheet, "A1"))
	assert.Equal(t, "INV-9", f.GetCellValue(sheet, "A2"))
	assert.Equal(t, "2024-02-29", f.GetCellValue(sheet, "B2"))
	assert.Equal(t, "450.00", f.GetCellValue(sheet, "K2"))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "pdf", nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, ok := ContentType("pdf")
	assert.False(t, ok)
}
