package recorder

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss. Negative or NaN input renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "0:00"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
