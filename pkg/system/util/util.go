package util

import (
	"math"
	"strconv"
	"strings"
)

// Round2 rounds to two decimals, the precision used for timestamps.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// FmtFloat formats a float with the shortest exact representation and at
// least one decimal ("12.0", "3.25"). NaN and infinities are written as 0.0
// so the CSV stays numeric.
func FmtFloat(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "0.0"
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseFloatOr parses s as a float and returns def when s is not numeric.
func ParseFloatOr(s string, def float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def, false
	}
	return v, true
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// ClampPercent limits x to [0,100]; NaN becomes 0.
func ClampPercent(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}
