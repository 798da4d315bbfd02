package parsing

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeNumber converts a locale-ambiguous numeric substring ("12,50",
// "12.50", "€3.5") into a decimal value. Every character outside [0-9.,-] is
// stripped, then the first comma becomes a decimal point. The comma is always
// read as a decimal mark, so thousands-grouped values like "1,234.56"
// mis-parse; this is a known limitation kept on purpose.
//
// The second return value reports whether a finite number was recovered.
// Callers decide whether absence invalidates the candidate line.
func NormalizeNumber(text string) (float64, bool) {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}

	cleaned := strings.Replace(b.String(), ",", ".", 1)
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// round2 rounds to two decimal places, the precision of every monetary field.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
