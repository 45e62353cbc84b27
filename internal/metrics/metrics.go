package metrics

import (
	"fmt"
	"math"
	"strconv"
)

// PercentageChange returns the rounded percent change from previous to
// current. A zero previous value reports 100 when current is positive and 0
// otherwise, so fresh sites show growth instead of a division error.
func PercentageChange(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}

// BounceRate returns the bounce percentage with two decimals. Invalid
// inputs report 0.
func BounceRate(bounces, sessions int) float64 {
	if sessions <= 0 || bounces < 0 {
		return 0
	}
	return math.Round(float64(bounces)/float64(sessions)*10000) / 100
}

// ConversionRate returns the conversion percentage with one decimal,
// capped at 100. Zero visitors report 0.
func ConversionRate(conversions, visitors int) float64 {
	if visitors <= 0 {
		return 0
	}
	rate := math.Round(float64(conversions)/float64(visitors)*1000) / 10
	if rate > 100 {
		return 100
	}
	return rate
}

// FormatDuration renders a millisecond duration as MM:SS, switching to
// HH:MM:SS at one hour. Non-positive durations render 00:00.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "00:00"
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatNumber renders a count compactly: 999 stays literal, 1500 becomes
// "1.5k", 2000000 becomes "2M". Negative values stay literal.
func FormatNumber(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	if n < 1000000 {
		return formatScaled(float64(n)/1000, "k")
	}
	return formatScaled(float64(n)/1000000, "M")
}

func formatScaled(v float64, suffix string) string {
	scaled := math.Round(v*10) / 10
	if scaled == math.Trunc(scaled) {
		return fmt.Sprintf("%d%s", int64(scaled), suffix)
	}
	return fmt.Sprintf("%.1f%s", scaled, suffix)
}
