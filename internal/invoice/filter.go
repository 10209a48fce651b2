package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cottonstock/invoicedesk/internal/domain"
)

// Date ranges understood by ListByOwner and DashboardStats.
const (
	RangeAll    = "all"
	RangeToday  = "today"
	RangeWeek   = "thisWeek"
	RangeMonth  = "thisMonth"
	RangeCustom = "custom"
)

// DateFilter selects invoices by invoiceDate. Start and End are only
// read for RangeCustom; either may be zero for an open bound.
type DateFilter struct {
	Range string
	Start time.Time
	End   time.Time
}

// AllDates matches every invoice.
var AllDates = DateFilter{Range: RangeAll}

// CustomRange selects whole days from start through end inclusive.
func CustomRange(start, end time.Time) DateFilter {
	return DateFilter{Range: RangeCustom, Start: start, End: end}
}

// ParseDateFilter builds a filter from query style values. Range names
// are case insensitive and accept the short forms week and month.
func ParseDateFilter(rng, start, end string, loc *time.Location) (DateFilter, error) {
	if loc == nil {
		loc = time.Local
	}
	f := DateFilter{}
	switch strings.ToLower(strings.TrimSpace(rng)) {
	case "", "all":
		f.Range = RangeAll
	case "today":
		f.Range = RangeToday
	case "week", "thisweek":
		f.Range = RangeWeek
	case "month", "thismonth":
		f.Range = RangeMonth
	case "custom":
		f.Range = RangeCustom
	default:
		return f, fmt.Errorf("%w: unknown date range %q", domain.ErrValidation, rng)
	}
	if f.Range != RangeCustom {
		return f, nil
	}

	var err error
	if strings.TrimSpace(start) != "" {
		if f.Start, err = dateparse.ParseIn(start, loc); err != nil {
			return f, fmt.Errorf("%w: invalid start date %q", domain.ErrValidation, start)
		}
	}
	if strings.TrimSpace(end) != "" {
		if f.End, err = dateparse.ParseIn(end, loc); err != nil {
			return f, fmt.Errorf("%w: invalid end date %q", domain.ErrValidation, end)
		}
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, fmt.Errorf("%w: end date before start date", domain.ErrValidation)
	}
	return f, nil
}

// Window resolves the filter against now. A zero bound is open. Weeks
// start on Sunday. Bounds are inclusive.
func (f DateFilter) Window(now time.Time) (from, to time.Time) {
	switch f.Range {
	case RangeToday:
		return startOfDay(now), endOfDay(now)
	case RangeWeek:
		day := startOfDay(now)
		return day.AddDate(0, 0, -int(day.Weekday())), time.Time{}
	case RangeMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), time.Time{}
	case RangeCustom:
		if !f.Start.IsZero() {
			from = startOfDay(f.Start)
		}
		if !f.End.IsZero() {
			to = endOfDay(f.End)
		}
		return from, to
	}
	return time.Time{}, time.Time{}
}

// Contains reports whether t falls inside the window resolved at now.
func (f DateFilter) Contains(t, now time.Time) bool {
	from, to := f.Window(now)
	return inWindow(t, from, to)
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
