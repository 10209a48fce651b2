package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/gocarina/gocsv"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheet = "Sheet1"
)

// Row is one exported invoice.
type Row struct {
	InvoiceNumber string `csv:"Invoice Number"`
	InvoiceDate   string `csv:"Invoice Date"`
	ClientName    string `csv:"Client Name"`
	ClientPhone   string `csv:"Client Phone"`
	Items         string `csv:"Items"`
	TotalPieces   int    `csv:"Total Pieces"`
	PaymentMode   string `csv:"Payment Mode"`
	Status        string `csv:"Status"`
	Subtotal      string `csv:"Subtotal"`
	Reduction     string `csv:"Reduction"`
	Total         string `csv:"Total"`
	Notes         string `csv:"Notes"`
}

var headers = []string{
	"Invoice Number", "Invoice Date", "Client Name", "Client Phone", "Items", "Total Pieces",
	"Payment Mode", "Status", "Subtotal", "Reduction", "Total", "Notes",
}

var columns = "ABCDEFGHIJKL"

func ToRows(invoices []*domain.Invoice) []*Row {
	rows := make([]*Row, 0, len(invoices))
	for _, inv := range invoices {
		names := make([]string, 0, len(inv.Items))
		for _, item := range inv.Items {
			names = append(names, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		}
		rows = append(rows, &Row{
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceDate:   inv.InvoiceDate.Format("2006-01-02"),
			ClientName:    inv.BillTo.ClientName,
			ClientPhone:   inv.BillTo.Phone,
			Items:         strings.Join(names, "; "),
			TotalPieces:   inv.TotalPieces,
			PaymentMode:   inv.PaymentMode,
			Status:        inv.Status,
			Subtotal:      inv.Subtotal.StringFixed(2),
			Reduction:     inv.DiscountTotal.StringFixed(2),
			Total:         inv.Total.StringFixed(2),
			Notes:         inv.Notes,
		})
	}
	return rows
}

// ContentType returns the MIME type and file extension for format.
func ContentType(format string) (string, bool) {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8", true
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true
	}
	return "", false
}

// Write renders invoices to w in the requested format.
func Write(w io.Writer, format string, invoices []*domain.Invoice) error {
	rows := ToRows(invoices)
	switch format {
	case FormatCSV:
		return gocsv.Marshal(rows, w)
	case FormatXLSX:
		return writeXLSX(w, rows)
	}
	return fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, format)
}

func writeXLSX(w io.Writer, rows []*Row) error {
	f := excelize.NewFile()
	for i, h := range headers {
		f.SetCellValue(sheet, cell(i, 1), h)
	}
	for r, row := range rows {
		line := r + 2
		values := []interface{}{
			row.InvoiceNumber, row.InvoiceDate, row.ClientName, row.ClientPhone, row.Items, row.TotalPieces,
			row.PaymentMode, row.Status, row.Subtotal, row.Reduction, row.Total, row.Notes,
		}
		for i, v := range values {
			f.SetCellValue(sheet, cell(i, line), v)
		}
	}
	return f.Write(w)
}

func cell(col, line int) string {
	return fmt.Sprintf("%c%d", columns[col], line)
}
