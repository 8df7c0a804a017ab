package recurring

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/model"
)

func TestDetect_Scenarios(t *testing.T) {
	start := mustDate(t, "2024-01-01")

	t.Run("monthly subscription", func(t *testing.T) {
		d := newTestDetector(t, nil)
		txns := seriesFrom("netflix", start, []int{0, 31, 60, 91, 121, 152}, "NETFLIX.COM 866-579-7172 CA", 14.99)

		result := d.Detect(txns)
		require.Len(t, result.Patterns, 1)
		assert.Empty(t, result.Residual)

		p := result.Patterns[0]
		assert.Equal(t, model.PeriodMonthly, p.Period)
		assert.InDelta(t, 14.99, p.AverageAmount, 1e-9)

		predictions, err := d.PredictFuture(result.Patterns, 3, p.LastDate)
		require.NoError(t, err)
		require.Len(t, predictions, 3)

		prev := p.LastDate
		for _, pred := range predictions {
			gap := pred.Date.DaysSince(prev)
			assert.InDelta(t, 30, gap, 1, "spacing from %s to %s", prev, pred.Date)
			prev = pred.Date
		}
	})

	t.Run("irregular spend", func(t *testing.T) {
		d := newTestDetector(t, nil)
		txns := seriesFrom("cafe", start, []int{0, 3, 43, 48, 108}, "BLUE BOTTLE COFFEE", 6.5)

		result := d.Detect(txns)
		require.Len(t, result.Patterns, 1)
		assert.Equal(t, model.PeriodIrregular, result.Patterns[0].Period)
		assert.Len(t, result.Irregular(), 1)
		assert.Empty(t, result.Predictable())

		now := start.AddDays(400)
		predictions, err := d.PredictFuture(result.Patterns, 3, now)
		require.NoError(t, err)
		assert.Empty(t, predictions)

		flags, err := d.FindMissing(result.Patterns, now, 5)
		require.NoError(t, err)
		assert.Empty(t, flags)
	})

	t.Run("overdue rent", func(t *testing.T) {
		d := newTestDetector(t, nil)
		txns := seriesFrom("rent", start, []int{0, 30, 60, 90}, "LANDLORD E-TRANSFER", 1850)

		result := d.Detect(txns)
		require.Len(t, result.Patterns, 1)
		p := result.Patterns[0]
		require.InDelta(t, 30, p.AverageIntervalDays, 1e-9)

		flags, err := d.FindMissing(result.Patterns, p.LastDate.AddDays(45), 5)
		require.NoError(t, err)
		require.Len(t, flags, 1)
		assert.Equal(t, 15, flags[0].DaysOverdue)
	})

	t.Run("below threshold", func(t *testing.T) {
		d := newTestDetector(t, func(c *Config) { c.MinOccurrences = 3 })
		txns := seriesFrom("pair", start, []int{0, 30}, "PARKING AUTHORITY", 12)

		result := d.Detect(txns)
		assert.Empty(t, result.Patterns)
		assert.ElementsMatch(t, []string{"pair-0", "pair-1"}, ids(result.Residual))
	})
}

func TestDetect_PartitionsWholeHistory(t *testing.T) {
	d := newTestDetector(t, nil)
	txns := randomHistory(42, 400)
	original := append([]model.Transaction(nil), txns...)

	result := d.Detect(txns)

	var seen []string
	for _, p := range result.Patterns {
		assert.GreaterOrEqual(t, p.Occurrences(), d.Config().MinOccurrences)
		seen = append(seen, ids(p.Members)...)
	}
	seen = append(seen, ids(result.Residual)...)

	assert.ElementsMatch(t, ids(txns), seen)
	assert.Equal(t, original, txns)
}

func TestDetect_EmptyHistory(t *testing.T) {
	d := newTestDetector(t, nil)

	result := d.Detect(nil)
	assert.Empty(t, result.Patterns)
	assert.Empty(t, result.Residual)
}

func TestNewDetector_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d, err := NewDetector(DefaultConfig(), WithLogger(logger))
	require.NoError(t, err)

	d.Detect(seriesFrom("x", mustDate(t, "2024-01-01"), []int{0, 7, 14}, "CAR WASH", 10))
	assert.Contains(t, buf.String(), "Detected recurring patterns")
}
