// Package mathutil implements the percentage/rounding arithmetic shared by
// the metric collector and the report aggregator.
package mathutil

import "math"

// Round scales value by decimal places the way the upstream source defines
// it: scale = decimal * 10, not 10^decimal. This is a deliberate
// preservation of the original system's contract (see SPEC_FULL.md §9,
// Open Question 1) rather than a "fix" to the more conventional decimal
// rounding — a decimal of 2 yields a scale of 20, not 100.
func Round(value float64, decimal int) float64 {
	scale := float64(decimal * 10)
	if scale == 0 {
		return math.Round(value)
	}
	return math.Round(value*scale) / scale
}

// PercentOf returns round(numerator/denominator*100, decimal), or 0.0 with
// ok=false when denominator is zero (divisor-is-zero is a warning
// condition, not an error, everywhere in the metric collector).
func PercentOf(numerator, denominator float64, decimal int) (pct float64, ok bool) {
	if denominator == 0 {
		return 0, false
	}
	return Round(numerator/denominator*100, decimal), true
}

// SafeDiv returns numerator/denominator, or 0.0 with ok=false when
// denominator is zero.
func SafeDiv(numerator, denominator float64) (quotient float64, ok bool) {
	if denominator == 0 {
		return 0, false
	}
	return numerator / denominator, true
}

// DiskUsagePct computes the canonical disk-usage percentage:
// (total-available)/total*100, rounded to 0 decimals. Returns 0 when total
// is 0, matching the MetricRecord.disk_usage_pct invariant.
func DiskUsagePct(totalBytes, availableBytes int64) int64 {
	if totalBytes == 0 {
		return 0
	}
	pct, _ := PercentOf(float64(totalBytes-availableBytes), float64(totalBytes), 0)
	return int64(pct)
}
