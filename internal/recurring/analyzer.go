package recurring

import (
	"math"
	"sort"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// periodBand is a canonical interval with the tolerance accepted around it.
type periodBand struct {
	kind      model.PeriodKind
	center    float64
	tolerance float64
}

// periodBands are checked in order; they do not overlap.
var periodBands = []periodBand{
	{kind: model.PeriodWeekly, center: 7, tolerance: 2},
	{kind: model.PeriodBiweekly, center: 14, tolerance: 2},
	{kind: model.PeriodMonthly, center: 30, tolerance: 4},
	{kind: model.PeriodQuarterly, center: 91, tolerance: 10},
	{kind: model.PeriodAnnual, center: 365, tolerance: 15},
}

// Analysis is the outcome of pattern analysis over a grouping.
type Analysis struct {
	Patterns []model.RecurringPattern
	// Residual holds the grouper's singletons plus the members of groups
	// that fell short of MinOccurrences.
	Residual []model.Transaction
}

// Analyze turns candidate groups into recurring patterns. Groups with fewer
// than MinOccurrences members are dropped silently; their transactions are
// returned as residual. Irregular groups are kept with PeriodIrregular.
func (d *Detector) Analyze(grouping Grouping) Analysis {
	result := Analysis{
		Residual: append([]model.Transaction(nil), grouping.Residual...),
	}

	for _, g := range grouping.Groups {
		if len(g.Members) < d.cfg.MinOccurrences {
			d.logger.Debug("Dropping group below minimum occurrences",
				"description", g.CanonicalDescription,
				"members", len(g.Members),
				"min_occurrences", d.cfg.MinOccurrences)
			result.Residual = append(result.Residual, g.Members...)
			continue
		}
		result.Patterns = append(result.Patterns, d.analyzeGroup(g))
	}

	sort.SliceStable(result.Patterns, func(i, j int) bool {
		if result.Patterns[i].Confidence != result.Patterns[j].Confidence {
			return result.Patterns[i].Confidence > result.Patterns[j].Confidence
		}
		return result.Patterns[i].CanonicalDescription < result.Patterns[j].CanonicalDescription
	})

	return result
}

func (d *Detector) analyzeGroup(g Group) model.RecurringPattern {
	members := append([]model.Transaction(nil), g.Members...)

	gaps := intervalDays(members)
	amounts := make([]float64, len(members))
	for i := range members {
		amounts[i] = members[i].Amount
	}

	intervalMean, intervalVar := meanVariance(gaps)
	amountMean, amountVar := meanVariance(amounts)

	intervalCV := coefficientOfVariation(intervalMean, intervalVar)
	amountCV := coefficientOfVariation(amountMean, amountVar)

	return model.RecurringPattern{
		CanonicalDescription: g.CanonicalDescription,
		Category:             dominantCategory(members),
		Members:              members,
		FirstDate:            members[0].CalendarDate(),
		LastDate:             members[len(members)-1].CalendarDate(),
		Period:               d.classifyPeriod(gaps, intervalMean, intervalCV),
		AverageIntervalDays:  intervalMean,
		IntervalVariance:     intervalVar,
		AverageAmount:        amountMean,
		AmountVariance:       amountVar,
		Confidence:           d.confidence(intervalCV, amountCV),
	}
}

// periodOf maps a gap sequence onto a period kind.
func (d *Detector) periodOf(gaps []float64) model.PeriodKind {
	mean, variance := meanVariance(gaps)
	return d.classifyPeriod(gaps, mean, coefficientOfVariation(mean, variance))
}

func (d *Detector) classifyPeriod(gaps []float64, mean, cv float64) model.PeriodKind {
	if len(gaps) == 0 || cv > d.cfg.MaxIntervalCV {
		return model.PeriodIrregular
	}
	for _, band := range periodBands {
		if math.Abs(mean-band.center) <= band.tolerance {
			return band.kind
		}
	}
	return model.PeriodIrregular
}

// confidence combines interval and amount regularity. Each term is
// 1 - min(cv, 1), so lower dispersion never lowers the score.
func (d *Detector) confidence(intervalCV, amountCV float64) float64 {
	score := d.cfg.IntervalWeight*(1-math.Min(intervalCV, 1)) +
		d.cfg.AmountWeight*(1-math.Min(amountCV, 1))
	return math.Max(0, math.Min(1, score))
}

// intervalDays returns the positive day gaps between consecutive members.
// Same-day repeats are ignored.
func intervalDays(members []model.Transaction) []float64 {
	gaps := make([]float64, 0, len(members))
	for i := 1; i < len(members); i++ {
		days := members[i].CalendarDate().DaysSince(members[i-1].CalendarDate())
		if days > 0 {
			gaps = append(gaps, float64(days))
		}
	}
	return gaps
}

// meanVariance returns the mean and population variance of values.
func meanVariance(values []float64) (mean, variance float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, variance
}

func coefficientOfVariation(mean, variance float64) float64 {
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	if mean == 0 {
		return 1
	}
	return stddev / math.Abs(mean)
}

func dominantCategory(members []model.Transaction) string {
	categories := make([]string, 0, len(members))
	for _, m := range members {
		if m.Category != "" {
			categories = append(categories, m.Category)
		}
	}
	if len(categories) == 0 {
		return ""
	}
	return mostFrequent(categories)
}
