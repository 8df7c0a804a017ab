package model

import (
	"cloud.google.com/go/civil"
)

// PeriodKind is the classified recurrence interval of a pattern.
type PeriodKind string

// Period kinds recognized by the recurring detector.
const (
	PeriodWeekly    PeriodKind = "weekly"
	PeriodBiweekly  PeriodKind = "biweekly"
	PeriodMonthly   PeriodKind = "monthly"
	PeriodQuarterly PeriodKind = "quarterly"
	PeriodAnnual    PeriodKind = "annual"
	// PeriodIrregular marks a group with no stable interval. It is reported
	// but never projected.
	PeriodIrregular PeriodKind = "irregular"
)

// IsPredictable reports whether patterns of this kind can be projected.
func (p PeriodKind) IsPredictable() bool {
	return p != "" && p != PeriodIrregular
}

// RecurringPattern is a group of transactions judged to represent the same
// repeating obligation, along with its derived statistics.
// Patterns are recomputed on every run and never persisted.
type RecurringPattern struct {
	LastDate             civil.Date
	FirstDate            civil.Date
	CanonicalDescription string
	Category             string
	Period               PeriodKind
	Members              []Transaction // ordered by date
	AverageIntervalDays  float64
	IntervalVariance     float64
	AverageAmount        float64
	AmountVariance       float64
	Confidence           float64
}

// Occurrences returns the number of member transactions.
func (p *RecurringPattern) Occurrences() int {
	return len(p.Members)
}

// Prediction is a projected future occurrence of a recurring pattern.
// It is not a transaction and must never be stored alongside history.
type Prediction struct {
	Pattern *RecurringPattern
	Date    civil.Date
	Amount  float64
	Step    int // k in last_date + k*interval
}

// OverdueFlag marks a pattern whose next expected occurrence has not
// appeared within the grace window.
type OverdueFlag struct {
	Pattern      *RecurringPattern
	ExpectedDate civil.Date
	DaysOverdue  int
}
