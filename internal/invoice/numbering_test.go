package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{name: "first", existing: nil, want: "INV-1"},
		{name: "max plus one not count plus one", existing: []string{"INV-1", "INV-2", "INV-5"}, want: "INV-6"},
		{name: "unordered", existing: []string{"INV-10", "INV-9"}, want: "INV-11"},
		{name: "skips suffix at int64 limit", existing: []string{"INV-8", "INV-9223372036854775807"}, want: "INV-9"},
		{name: "ignores foreign and malformed", existing: []string{"INV-3", "BILL-40", "INV-x7", "INV-", "INV-2024-01"}, want: "INV-4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NextNumber("INV-", tt.existing))
		})
	}
}
