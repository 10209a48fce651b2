package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2024-05-15 14:30 UTC
var fixedNow = time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)

func TestDateFilterWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter DateFilter
		from   time.Time
		to     time.Time
	}{
		{name: "all", filter: AllDates},
		{name: "today", filter: DateFilter{Range: RangeToday},
			from: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 5, 15, 23, 59, 59, 999999999, time.UTC)},
		{name: "week starts sunday", filter: DateFilter{Range: RangeWeek},
			from: time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)},
		{name: "month", filter: DateFilter{Range: RangeMonth},
			from: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{name: "custom whole days",
			filter: CustomRange(time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC), time.Date(2024, 4, 3, 1, 0, 0, 0, time.UTC)),
			from:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			to:     time.Date(2024, 4, 3, 23, 59, 59, 999999999, time.UTC)},
		{name: "custom open end",
			filter: DateFilter{Range: RangeCustom, Start: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)},
			from:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			from, to := tt.filter.Window(fixedNow)
			assert.True(t, tt.from.Equal(from), "from %s", from)
			assert.True(t, tt.to.Equal(to), "to %s", to)
		})
	}
}

func TestDateFilterContains(t *testing.T) {
	week := DateFilter{Range: RangeWeek}
	assert.True(t, week.Contains(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), fixedNow))
	assert.False(t, week.Contains(time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC), fixedNow))

	custom := CustomRange(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC))
	assert.True(t, custom.Contains(time.Date(2024, 4, 3, 22, 0, 0, 0, time.UTC), fixedNow))
	assert.False(t, custom.Contains(time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC), fixedNow))
}

func TestParseDateFilter(t *testing.T) {
	f, err := ParseDateFilter("week", "", "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, f.Range)

	f, err = ParseDateFilter("", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, RangeAll, f.Range)

	f, err = ParseDateFilter("custom", "2024-04-02", "2024-04-30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Start.Day())
	assert.Equal(t, 30, f.End.Day())

	_, err = ParseDateFilter("custom", "2024-04-30", "2024-04-02", time.UTC)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = ParseDateFilter("custom", "not a date", "", time.UTC)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = ParseDateFilter("fortnight", "", "", time.UTC)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
