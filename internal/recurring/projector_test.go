package recurring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
)

// monthlyPattern analyzes six monthly charges ending on 2024-06-01.
func monthlyPattern(t *testing.T, d *Detector) model.RecurringPattern {
	t.Helper()
	start := mustDate(t, "2024-01-01")
	members := seriesFrom("netflix", start, []int{0, 31, 60, 91, 121, 152}, "NETFLIX.COM", 14.99)

	analysis := d.Analyze(d.Group(members))
	require.Len(t, analysis.Patterns, 1)
	return analysis.Patterns[0]
}

// fixedPattern builds a pattern with a known interval without running the grouper.
func fixedPattern(t *testing.T, desc string, last string, interval float64, period model.PeriodKind) model.RecurringPattern {
	t.Helper()
	lastDate := mustDate(t, last)
	return model.RecurringPattern{
		CanonicalDescription: desc,
		Period:               period,
		FirstDate:            lastDate.AddDays(-int(interval) * 3),
		LastDate:             lastDate,
		AverageIntervalDays:  interval,
		AverageAmount:        20,
		Members:              []model.Transaction{txnOn(desc, lastDate, desc, 20)},
	}
}

func TestPredictFuture_MonthlyHorizon(t *testing.T) {
	d := newTestDetector(t, nil)
	patterns := []model.RecurringPattern{monthlyPattern(t, d)}

	predictions, err := d.PredictFuture(patterns, 3, mustDate(t, "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, predictions, 3)

	want := []string{"2024-07-01", "2024-08-01", "2024-08-31"}
	for i, p := range predictions {
		assert.Equal(t, want[i], p.Date.String())
		assert.Equal(t, i+1, p.Step)
		assert.InDelta(t, 14.99, p.Amount, 1e-9)
		assert.Same(t, &patterns[0], p.Pattern)
	}
}

func TestPredictFuture_DatesStrictlyIncreasePerPattern(t *testing.T) {
	d := newTestDetector(t, nil)
	patterns := []model.RecurringPattern{
		fixedPattern(t, "weekly thing", "2024-05-30", 7, model.PeriodWeekly),
		fixedPattern(t, "biweekly pay", "2024-05-24", 14, model.PeriodBiweekly),
		fixedPattern(t, "monthly rent", "2024-05-01", 30.4, model.PeriodMonthly),
		fixedPattern(t, "quarterly tax", "2024-04-15", 91, model.PeriodQuarterly),
		fixedPattern(t, "annual domain", "2023-09-10", 365, model.PeriodAnnual),
	}
	now := mustDate(t, "2024-06-01")
	horizon := mustDate(t, "2025-06-01")

	predictions, err := d.PredictFuture(patterns, 12, now)
	require.NoError(t, err)
	require.NotEmpty(t, predictions)

	groups := GroupPredictions(predictions)
	assert.Len(t, groups, len(patterns))
	for _, g := range groups {
		pattern, preds := g.Pattern, g.Predictions
		require.NotEmpty(t, preds)
		assert.True(t, pattern.LastDate.Before(preds[0].Date), "%s predicts on or before last seen date", pattern.CanonicalDescription)
		for i := range preds {
			assert.False(t, preds[i].Date.After(horizon))
			if i > 0 {
				assert.True(t, preds[i-1].Date.Before(preds[i].Date), "%s dates not increasing", pattern.CanonicalDescription)
			}
		}
	}

	for i := 1; i < len(predictions); i++ {
		assert.False(t, predictions[i].Date.Before(predictions[i-1].Date), "predictions not ordered by date")
	}
}

func TestGroupPredictions(t *testing.T) {
	d := newTestDetector(t, nil)
	patterns := []model.RecurringPattern{
		fixedPattern(t, "monthly rent", "2024-05-20", 30, model.PeriodMonthly),
		fixedPattern(t, "weekly thing", "2024-05-30", 7, model.PeriodWeekly),
	}

	predictions, err := d.PredictFuture(patterns, 1, mustDate(t, "2024-06-01"))
	require.NoError(t, err)

	groups := GroupPredictions(predictions)
	require.Len(t, groups, 2)
	assert.Same(t, &patterns[1], groups[0].Pattern)
	assert.Equal(t, "2024-06-06", groups[0].Predictions[0].Date.String())
	assert.Len(t, groups[0].Predictions, 4)
	assert.Same(t, &patterns[0], groups[1].Pattern)
	assert.Equal(t, []int{1}, steps(groups[1].Predictions))

	assert.Empty(t, GroupPredictions(nil))
}

func steps(predictions []model.Prediction) []int {
	out := make([]int, len(predictions))
	for i, p := range predictions {
		out[i] = p.Step
	}
	return out
}

func TestPredictFuture_SkipsIrregular(t *testing.T) {
	d := newTestDetector(t, nil)
	patterns := []model.RecurringPattern{
		fixedPattern(t, "random shop", "2024-05-01", 27, model.PeriodIrregular),
	}

	predictions, err := d.PredictFuture(patterns, 6, mustDate(t, "2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestPredictFuture_EmptyInput(t *testing.T) {
	d := newTestDetector(t, nil)

	predictions, err := d.PredictFuture(nil, 3, mustDate(t, "2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestPredictFuture_RejectsNonPositiveMonths(t *testing.T) {
	d := newTestDetector(t, nil)

	for _, months := range []int{0, -1} {
		_, err := d.PredictFuture(nil, months, mustDate(t, "2024-06-01"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidConfig))

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "months_ahead", cfgErr.Field)
	}
}

func TestPredictFuture_AmountTrend(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	members := []model.Transaction{
		txnOn("a", start, "CITY WATER", 10),
		txnOn("b", start.AddDays(30), "CITY WATER", 11),
		txnOn("c", start.AddDays(60), "CITY WATER", 12),
	}
	now := start.AddDays(60)

	flat := newTestDetector(t, func(c *Config) { c.AmountTolerance = 0.2 })
	flatPatterns := flat.Analyze(flat.Group(members)).Patterns
	require.Len(t, flatPatterns, 1)

	predictions, err := flat.PredictFuture(flatPatterns, 1, now)
	require.NoError(t, err)
	require.NotEmpty(t, predictions)
	assert.InDelta(t, 11, predictions[0].Amount, 1e-9)

	trending := newTestDetector(t, func(c *Config) {
		c.AmountTolerance = 0.2
		c.ProjectAmountTrend = true
	})
	trendPatterns := trending.Analyze(trending.Group(members)).Patterns
	require.Len(t, trendPatterns, 1)

	predictions, err = trending.PredictFuture(trendPatterns, 1, now)
	require.NoError(t, err)
	require.NotEmpty(t, predictions)
	assert.InDelta(t, 13, predictions[0].Amount, 1e-9)
}

func TestFindMissing(t *testing.T) {
	d := newTestDetector(t, nil)
	last := "2024-04-01"
	lastDate := mustDate(t, last)

	tests := []struct {
		name        string
		now         int // days after the last occurrence
		grace       int
		wantFlagged bool
		wantOverdue int
	}{
		{name: "inside current period", now: 10, grace: 5},
		{name: "exactly on schedule", now: 30, grace: 5},
		{name: "at grace boundary", now: 35, grace: 5},
		{name: "one day past grace", now: 36, grace: 5, wantFlagged: true, wantOverdue: 6},
		{name: "well overdue", now: 45, grace: 5, wantFlagged: true, wantOverdue: 15},
		{name: "zero grace", now: 31, grace: 0, wantFlagged: true, wantOverdue: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns := []model.RecurringPattern{fixedPattern(t, "phone bill", last, 30, model.PeriodMonthly)}

			flags, err := d.FindMissing(patterns, lastDate.AddDays(tt.now), tt.grace)
			require.NoError(t, err)

			if !tt.wantFlagged {
				assert.Empty(t, flags)
				return
			}
			require.Len(t, flags, 1)
			assert.Equal(t, tt.wantOverdue, flags[0].DaysOverdue)
			assert.Equal(t, "2024-05-01", flags[0].ExpectedDate.String())
			assert.Same(t, &patterns[0], flags[0].Pattern)
		})
	}
}

func TestFindMissing_FractionalInterval(t *testing.T) {
	d := newTestDetector(t, nil)
	last := mustDate(t, "2024-01-01")
	patterns := []model.RecurringPattern{fixedPattern(t, "gym", "2024-01-01", 30.6, model.PeriodMonthly)}

	flags, err := d.FindMissing(patterns, last.AddDays(36), 5)
	require.NoError(t, err)
	assert.Empty(t, flags, "five days past 2024-02-01 is within grace")

	flags, err = d.FindMissing(patterns, last.AddDays(37), 5)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "2024-02-01", flags[0].ExpectedDate.String())
	assert.Equal(t, 6, flags[0].DaysOverdue)
	assert.Equal(t, flags[0].DaysOverdue, last.AddDays(37).DaysSince(flags[0].ExpectedDate))
}

func TestFindMissing_OrdersByLateness(t *testing.T) {
	d := newTestDetector(t, nil)
	patterns := []model.RecurringPattern{
		fixedPattern(t, "slightly late", "2024-04-20", 30, model.PeriodMonthly),
		fixedPattern(t, "very late", "2024-03-01", 30, model.PeriodMonthly),
		fixedPattern(t, "irregular", "2023-01-01", 30, model.PeriodIrregular),
	}

	flags, err := d.FindMissing(patterns, mustDate(t, "2024-06-01"), 5)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "very late", flags[0].Pattern.CanonicalDescription)
	assert.Equal(t, "slightly late", flags[1].Pattern.CanonicalDescription)
}

func TestFindMissing_RejectsNegativeGrace(t *testing.T) {
	d := newTestDetector(t, nil)

	_, err := d.FindMissing(nil, mustDate(t, "2024-06-01"), -1)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "grace_period_days", cfgErr.Field)
}

func TestFindMissing_EmptyInput(t *testing.T) {
	d := newTestDetector(t, nil)

	flags, err := d.FindMissing(nil, mustDate(t, "2024-06-01"), 5)
	require.NoError(t, err)
	assert.Empty(t, flags)
}
