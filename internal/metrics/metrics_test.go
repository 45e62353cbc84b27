package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visitra/internal/metrics"
)

func TestPercentageChange(t *testing.T) {
	t.Run("growth from zero reports 100", func(t *testing.T) {
		assert.Equal(t, 100, metrics.PercentageChange(50, 0))
	})

	t.Run("zero to zero reports 0", func(t *testing.T) {
		assert.Equal(t, 0, metrics.PercentageChange(0, 0))
	})

	t.Run("rounds to the nearest integer", func(t *testing.T) {
		assert.Equal(t, 50, metrics.PercentageChange(150, 100))
		assert.Equal(t, -25, metrics.PercentageChange(75, 100))
		assert.Equal(t, 33, metrics.PercentageChange(4, 3))
	})
}

func TestBounceRate(t *testing.T) {
	t.Run("all sessions bounced", func(t *testing.T) {
		assert.Equal(t, 100.0, metrics.BounceRate(10, 10))
	})

	t.Run("zero sessions report 0", func(t *testing.T) {
		assert.Equal(t, 0.0, metrics.BounceRate(5, 0))
		assert.Equal(t, 0.0, metrics.BounceRate(0, 0))
	})

	t.Run("negative bounces report 0", func(t *testing.T) {
		assert.Equal(t, 0.0, metrics.BounceRate(-1, 10))
	})

	t.Run("two decimal precision", func(t *testing.T) {
		assert.Equal(t, 33.33, metrics.BounceRate(1, 3))
	})
}

func TestConversionRate(t *testing.T) {
	t.Run("zero visitors report 0", func(t *testing.T) {
		assert.Equal(t, 0.0, metrics.ConversionRate(5, 0))
	})

	t.Run("one decimal precision", func(t *testing.T) {
		assert.Equal(t, 12.5, metrics.ConversionRate(1, 8))
		assert.Equal(t, 33.3, metrics.ConversionRate(1, 3))
	})

	t.Run("capped at 100", func(t *testing.T) {
		assert.Equal(t, 100.0, metrics.ConversionRate(12, 10))
	})
}

func TestFormatDuration(t *testing.T) {
	t.Run("non-positive renders 00:00", func(t *testing.T) {
		assert.Equal(t, "00:00", metrics.FormatDuration(0))
		assert.Equal(t, "00:00", metrics.FormatDuration(-5000))
	})

	t.Run("under an hour renders MM:SS", func(t *testing.T) {
		assert.Equal(t, "00:45", metrics.FormatDuration(45*1000))
		assert.Equal(t, "05:30", metrics.FormatDuration(330*1000))
		assert.Equal(t, "59:59", metrics.FormatDuration(3599*1000))
	})

	t.Run("an hour and beyond renders HH:MM:SS", func(t *testing.T) {
		assert.Equal(t, "01:00:00", metrics.FormatDuration(3600*1000))
		assert.Equal(t, "02:15:07", metrics.FormatDuration((2*3600+15*60+7)*1000))
	})
}

func TestFormatNumber(t *testing.T) {
	t.Run("small counts stay literal", func(t *testing.T) {
		assert.Equal(t, "0", metrics.FormatNumber(0))
		assert.Equal(t, "999", metrics.FormatNumber(999))
		assert.Equal(t, "-42", metrics.FormatNumber(-42))
	})

	t.Run("thousands get a k suffix", func(t *testing.T) {
		assert.Equal(t, "1k", metrics.FormatNumber(1000))
		assert.Equal(t, "1.5k", metrics.FormatNumber(1500))
		assert.Equal(t, "999.9k", metrics.FormatNumber(999850))
	})

	t.Run("millions get an M suffix", func(t *testing.T) {
		assert.Equal(t, "1M", metrics.FormatNumber(1000000))
		assert.Equal(t, "2.5M", metrics.FormatNumber(2500000))
	})
}
