package domain

import "math"

// JoinDuration folds hours and minutes into a fractional-hour quantity.
func JoinDuration(hours, minutes int) float64 {
	return float64(hours) + float64(minutes)/60.0
}

// SplitDuration is the inverse of JoinDuration. Minutes are rounded to the
// nearest whole minute; a rounded value of 60 carries into hours.
func SplitDuration(quantity float64) (hours, minutes int) {
	if quantity <= 0 {
		return 0, 0
	}
	whole := math.Floor(quantity)
	hours = int(whole)
	minutes = int(math.Round((quantity - whole) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return hours, minutes
}
