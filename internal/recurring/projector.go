package recurring

import (
	"math"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// PredictFuture projects each predictable pattern forward. For step k the
// predicted date is LastDate + round(k * AverageIntervalDays); steps continue
// while the date is on or before now plus monthsAhead calendar months.
// Irregular patterns produce nothing. Results are ordered by date, then by
// canonical description.
func (d *Detector) PredictFuture(patterns []model.RecurringPattern, monthsAhead int, now civil.Date) ([]model.Prediction, error) {
	if err := validateMonthsAhead(monthsAhead); err != nil {
		return nil, err
	}

	horizon := addMonths(now, monthsAhead)

	var predictions []model.Prediction
	for i := range patterns {
		p := &patterns[i]
		if !eligible(p) {
			continue
		}

		trend := amountTrend(p)
		for k := 1; ; k++ {
			date := p.LastDate.AddDays(stepDays(k, p.AverageIntervalDays))
			if date.After(horizon) {
				break
			}

			amount := p.AverageAmount
			if d.cfg.ProjectAmountTrend {
				amount = trend.at(date)
			}

			predictions = append(predictions, model.Prediction{
				Pattern: p,
				Date:    date,
				Amount:  amount,
				Step:    k,
			})
		}
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].Date != predictions[j].Date {
			return predictions[i].Date.Before(predictions[j].Date)
		}
		return predictions[i].Pattern.CanonicalDescription < predictions[j].Pattern.CanonicalDescription
	})

	d.logger.Debug("Projected recurring patterns",
		"patterns", len(patterns),
		"predictions", len(predictions),
		"horizon", horizon.String())

	return predictions, nil
}

// PredictionGroup is the upcoming occurrences of one pattern.
type PredictionGroup struct {
	Pattern     *model.RecurringPattern
	Predictions []model.Prediction
}

// GroupPredictions buckets predictions by pattern, keeping date order within
// each bucket. Buckets are ordered by their first date, then description.
func GroupPredictions(predictions []model.Prediction) []PredictionGroup {
	index := make(map[*model.RecurringPattern]int)
	var groups []PredictionGroup
	for _, p := range predictions {
		i, ok := index[p.Pattern]
		if !ok {
			i = len(groups)
			index[p.Pattern] = i
			groups = append(groups, PredictionGroup{Pattern: p.Pattern})
		}
		groups[i].Predictions = append(groups[i].Predictions, p)
	}

	for i := range groups {
		preds := groups[i].Predictions
		sort.SliceStable(preds, func(a, b int) bool { return preds[a].Date.Before(preds[b].Date) })
	}
	sort.SliceStable(groups, func(a, b int) bool {
		da, db := groups[a].Predictions[0].Date, groups[b].Predictions[0].Date
		if da != db {
			return da.Before(db)
		}
		return groups[a].Pattern.CanonicalDescription < groups[b].Pattern.CanonicalDescription
	})
	return groups
}

// FindMissing flags predictable patterns whose next occurrence is more than
// graceDays late. The expected date is LastDate + round(AverageIntervalDays)
// and DaysOverdue is the whole number of days from it to now.
// A pattern whose last member falls inside the current period is never
// flagged. Results are ordered by DaysOverdue descending.
func (d *Detector) FindMissing(patterns []model.RecurringPattern, now civil.Date, graceDays int) ([]model.OverdueFlag, error) {
	if err := validateGracePeriod(graceDays); err != nil {
		return nil, err
	}

	var flags []model.OverdueFlag
	for i := range patterns {
		p := &patterns[i]
		if !eligible(p) {
			continue
		}

		expected := p.LastDate.AddDays(stepDays(1, p.AverageIntervalDays))
		overdue := now.DaysSince(expected)
		if overdue <= graceDays {
			continue
		}

		flags = append(flags, model.OverdueFlag{
			Pattern:      p,
			ExpectedDate: expected,
			DaysOverdue:  overdue,
		})
	}

	sort.SliceStable(flags, func(i, j int) bool {
		if flags[i].DaysOverdue != flags[j].DaysOverdue {
			return flags[i].DaysOverdue > flags[j].DaysOverdue
		}
		return flags[i].Pattern.CanonicalDescription < flags[j].Pattern.CanonicalDescription
	})

	return flags, nil
}

func eligible(p *model.RecurringPattern) bool {
	return p.Period.IsPredictable() && p.AverageIntervalDays >= 1 && len(p.Members) > 0
}

func stepDays(k int, interval float64) int {
	return int(math.Round(float64(k) * interval))
}

func addMonths(d civil.Date, months int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(0, months, 0))
}

// linearTrend is a least-squares fit of amount against days since the first
// member.
type linearTrend struct {
	origin    civil.Date
	intercept float64
	slope     float64
}

func (t linearTrend) at(date civil.Date) float64 {
	return t.intercept + t.slope*float64(date.DaysSince(t.origin))
}

func amountTrend(p *model.RecurringPattern) linearTrend {
	trend := linearTrend{origin: p.FirstDate, intercept: p.AverageAmount}
	if len(p.Members) < 2 {
		return trend
	}

	n := float64(len(p.Members))
	var sumX, sumY, sumXY, sumXX float64
	for i := range p.Members {
		x := float64(p.Members[i].CalendarDate().DaysSince(p.FirstDate))
		y := p.Members[i].Amount
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return trend
	}

	trend.slope = (n*sumXY - sumX*sumY) / denom
	trend.intercept = (sumY - trend.slope*sumX) / n
	return trend
}
