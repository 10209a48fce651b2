package invoice

import (
	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// DashboardStats aggregates an owner's invoices.
type DashboardStats struct {
	TotalInvoices int             `json:"totalInvoices"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	UnpaidAmount  decimal.Decimal `json:"unpaidAmount"`
	TotalPaid     int             `json:"totalPaid"`
	TotalUnpaid   int             `json:"totalUnpaid"`
	TotalPieces   int             `json:"totalPieces"`
	AverageAmount float64         `json:"averageAmount"`
	MedianAmount  float64         `json:"medianAmount"`
}

// Summarize aggregates already normalized invoices.
func Summarize(invoices []*domain.Invoice) DashboardStats {
	s := DashboardStats{
		TotalAmount:  decimal.Zero,
		PaidAmount:   decimal.Zero,
		UnpaidAmount: decimal.Zero,
	}
	totals := make(stats.Float64Data, 0, len(invoices))
	for _, inv := range invoices {
		s.TotalInvoices++
		s.TotalAmount = s.TotalAmount.Add(inv.Total)
		s.TotalPieces += inv.TotalPieces
		if inv.Status == domain.StatusPaid {
			s.TotalPaid++
			s.PaidAmount = s.PaidAmount.Add(inv.Total)
		} else {
			s.TotalUnpaid++
			s.UnpaidAmount = s.UnpaidAmount.Add(inv.Total)
		}
		totals = append(totals, inv.Total.InexactFloat64())
	}
	if len(totals) > 0 {
		s.AverageAmount, _ = totals.Mean()
		s.MedianAmount, _ = totals.Median()
	}
	return s
}
