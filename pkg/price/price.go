package price

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrNotAPrice = errors.New("not a price")

// Normalize converts locale-formatted price text into a canonical value.
// Everything except digits, '.' and ',' is stripped. The last separator in
// the cleaned string is taken as the decimal point; every earlier separator
// is a thousands separator and is removed. This handles both "1.299,90" and
// "1,299.90", as well as plain "1299.9".
func Normalize(text string) (float64, error) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, ErrNotAPrice
	}

	last := strings.LastIndexAny(cleaned, ".,")
	if last >= 0 {
		intPart := cleaned[:last]
		intPart = strings.ReplaceAll(intPart, ".", "")
		intPart = strings.ReplaceAll(intPart, ",", "")
		cleaned = intPart + "." + cleaned[last+1:]
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrNotAPrice
	}
	return v, nil
}

// PctOff returns the discount percentage for a list/current price pair,
// rounded to two decimals, or 0 when the pair carries no discount.
func PctOff(listPrice, current float64) float64 {
	if listPrice <= 0 || current <= 0 || current >= listPrice {
		return 0
	}
	return Round2(100 * (1 - current/listPrice))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
