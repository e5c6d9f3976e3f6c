package analysis

// Ratio is the single ratio-computation routine for the whole engine. It
// returns num/den and whether the ratio is defined (den > 0).
//
// The contract distinguishes two consumers:
//   - statistics consumers must skip rows where ok is false (undefined ratios
//     are excluded from averages, never NaN-filled);
//   - stable-default consumers (transit_ratio, od_ratio at zero total flow)
//     take the returned 0 as a defined business value.
func Ratio(num, den float64) (v float64, ok bool) {
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// RatioOrZero returns num/den with zero as the stable default for a
// non-positive denominator
func RatioOrZero(num, den float64) float64 {
	v, _ := Ratio(num, den)
	return v
}
