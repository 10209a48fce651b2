package invoice

import (
	"math"
	"strconv"
	"strings"
)

// NextNumber returns prefix followed by one more than the highest numeric
// suffix among existing. Numbers that do not carry prefix or whose suffix
// is not a plain integer are ignored, as is a suffix that cannot be
// incremented. With nothing to scan it returns prefix+"1".
func NextNumber(prefix string, existing []string) string {
	var max int64
	for _, num := range existing {
		if !strings.HasPrefix(num, prefix) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(num, prefix), 10, 64)
		if err != nil || n < 0 || n == math.MaxInt64 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return prefix + strconv.FormatInt(max+1, 10)
}
