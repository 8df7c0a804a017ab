package recurring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/model"
)

func TestPeriodOf(t *testing.T) {
	d := newTestDetector(t, nil)

	tests := []struct {
		name string
		gaps []float64
		want model.PeriodKind
	}{
		{name: "no gaps", gaps: nil, want: model.PeriodIrregular},
		{name: "weekly", gaps: []float64{7, 7, 7, 7}, want: model.PeriodWeekly},
		{name: "weekly with drift", gaps: []float64{6, 8, 7, 7}, want: model.PeriodWeekly},
		{name: "biweekly", gaps: []float64{14, 14, 15, 13}, want: model.PeriodBiweekly},
		{name: "monthly", gaps: []float64{31, 29, 31, 30, 31}, want: model.PeriodMonthly},
		{name: "quarterly", gaps: []float64{90, 92, 91}, want: model.PeriodQuarterly},
		{name: "annual", gaps: []float64{365, 366}, want: model.PeriodAnnual},
		{name: "high dispersion", gaps: []float64{3, 40, 5, 60}, want: model.PeriodIrregular},
		{name: "stable but between bands", gaps: []float64{50, 50, 50}, want: model.PeriodIrregular},
		{name: "single gap", gaps: []float64{30}, want: model.PeriodMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.periodOf(tt.gaps))
		})
	}
}

func TestIntervalDays_IgnoresSameDayRepeats(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	members := seriesFrom("x", start, []int{0, 0, 30, 60, 60}, "SPOTIFY", 10)

	assert.Equal(t, []float64{30, 30}, intervalDays(members))
}

func TestMeanVariance(t *testing.T) {
	mean, variance := meanVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-9)
	assert.InDelta(t, 4, variance, 1e-9)

	mean, variance = meanVariance(nil)
	assert.Zero(t, mean)
	assert.Zero(t, variance)
}

func TestConfidence(t *testing.T) {
	d := newTestDetector(t, nil)

	t.Run("perfect regularity scores one", func(t *testing.T) {
		assert.InDelta(t, 1, d.confidence(0, 0), 1e-9)
	})

	t.Run("stays within bounds", func(t *testing.T) {
		for _, cv := range []float64{0, 0.1, 0.5, 1, 3, 100} {
			score := d.confidence(cv, cv)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})

	t.Run("lower dispersion never lowers the score", func(t *testing.T) {
		cvs := []float64{0, 0.05, 0.2, 0.5, 0.9, 1.5}
		for i := 1; i < len(cvs); i++ {
			assert.GreaterOrEqual(t, d.confidence(cvs[i-1], 0.1), d.confidence(cvs[i], 0.1))
			assert.GreaterOrEqual(t, d.confidence(0.1, cvs[i-1]), d.confidence(0.1, cvs[i]))
		}
	})
}

func TestAnalyze_MonthlySubscription(t *testing.T) {
	d := newTestDetector(t, nil)
	start := mustDate(t, "2024-01-01")
	members := seriesFrom("netflix", start, []int{0, 31, 60, 91, 121, 152}, "NETFLIX.COM", 14.99)

	analysis := d.Analyze(d.Group(members))
	require.Len(t, analysis.Patterns, 1)
	assert.Empty(t, analysis.Residual)

	p := analysis.Patterns[0]
	assert.Equal(t, "netflix.com", p.CanonicalDescription)
	assert.Equal(t, model.PeriodMonthly, p.Period)
	assert.Equal(t, 6, p.Occurrences())
	assert.Equal(t, start, p.FirstDate)
	assert.Equal(t, mustDate(t, "2024-06-01"), p.LastDate)
	assert.InDelta(t, 30.4, p.AverageIntervalDays, 1e-9)
	assert.InDelta(t, 0.64, p.IntervalVariance, 1e-9)
	assert.InDelta(t, 14.99, p.AverageAmount, 1e-9)
	assert.InDelta(t, 0, p.AmountVariance, 1e-9)
	assert.InDelta(t, 0.984, p.Confidence, 0.001)
}

func TestAnalyze_DropsGroupsBelowMinimum(t *testing.T) {
	d := newTestDetector(t, func(c *Config) { c.MinOccurrences = 3 })
	start := mustDate(t, "2024-01-01")

	txns := append(
		seriesFrom("gym", start, []int{0, 30, 60}, "GOODLIFE FITNESS", 55),
		seriesFrom("dentist", start, []int{5, 190}, "SMILE DENTAL", 120)...,
	)

	analysis := d.Analyze(d.Group(txns))
	require.Len(t, analysis.Patterns, 1)
	assert.Equal(t, "goodlife fitness", analysis.Patterns[0].CanonicalDescription)
	assert.ElementsMatch(t, []string{"dentist-0", "dentist-1"}, ids(analysis.Residual))
}

func TestAnalyze_OrdersByConfidence(t *testing.T) {
	d := newTestDetector(t, nil)
	start := mustDate(t, "2024-01-01")

	steady := seriesFrom("steady", start, []int{0, 30, 60, 90}, "ROGERS WIRELESS", 85)
	wobbly := seriesFrom("wobbly", start, []int{0, 25, 62, 90}, "ENMAX ENERGY", 120)

	analysis := d.Analyze(d.Group(append(wobbly, steady...)))
	require.Len(t, analysis.Patterns, 2)
	assert.Equal(t, "rogers wireless", analysis.Patterns[0].CanonicalDescription)
	assert.Greater(t, analysis.Patterns[0].Confidence, analysis.Patterns[1].Confidence)
}

func TestAnalyze_DominantCategory(t *testing.T) {
	d := newTestDetector(t, nil)
	start := mustDate(t, "2024-01-01")

	members := seriesFrom("sub", start, []int{0, 30, 60}, "DISNEY PLUS", 11.99)
	members[0].Category = "Entertainment"
	members[1].Category = "Entertainment"
	members[2].Category = "Other"

	analysis := d.Analyze(d.Group(members))
	require.Len(t, analysis.Patterns, 1)
	assert.Equal(t, "Entertainment", analysis.Patterns[0].Category)
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	d := newTestDetector(t, nil)
	txns := randomHistory(11, 200)

	first := d.Analyze(d.Group(txns))
	second := d.Analyze(d.Group(txns))
	assert.Equal(t, first, second)
}
