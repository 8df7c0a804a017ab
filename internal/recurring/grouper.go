package recurring

import (
	"math"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// Group is a candidate set of transactions that look like the same obligation.
type Group struct {
	CanonicalDescription string
	Members              []model.Transaction // ordered by date
	normalized           []string            // normalized description per member
	runningAverage       float64
	lastDate             civil.Date
	updated              int // admission sequence number of the latest member
}

// Grouping is a partition of a transaction history into candidate groups
// (two or more members) and residual singletons.
type Grouping struct {
	Groups   []Group
	Residual []model.Transaction
}

// Group partitions transactions into candidate recurring groups.
// Every input transaction appears exactly once, either in a group or in
// Residual. The input slice is not modified.
func (d *Detector) Group(transactions []model.Transaction) Grouping {
	if len(transactions) == 0 {
		return Grouping{}
	}

	sorted := sortByDate(transactions)

	var groups []*Group
	for seq, txn := range sorted {
		norm := Normalize(txn.Description)
		date := txn.CalendarDate()

		best := d.bestGroup(groups, norm, txn.Amount, date)
		if best == nil {
			groups = append(groups, &Group{
				CanonicalDescription: norm,
				Members:              []model.Transaction{txn},
				normalized:           []string{norm},
				runningAverage:       txn.Amount,
				lastDate:             date,
				updated:              seq,
			})
			continue
		}

		best.admit(txn, norm, date, seq)
		d.refreshCanonical(best)
	}

	var result Grouping
	for _, g := range groups {
		if len(g.Members) < 2 {
			result.Residual = append(result.Residual, g.Members...)
			continue
		}
		result.Groups = append(result.Groups, *g)
	}

	d.logger.Debug("Grouped transactions",
		"transactions", len(transactions),
		"groups", len(result.Groups),
		"residual", len(result.Residual))

	return result
}

// bestGroup picks the open group that accepts the transaction, preferring
// higher similarity, then smaller amount deviation, then the most recently
// updated group. It returns nil when no group accepts it.
func (d *Detector) bestGroup(groups []*Group, norm string, amount float64, date civil.Date) *Group {
	var (
		best          *Group
		bestSim       float64
		bestDeviation float64
	)

	for _, g := range groups {
		if !d.isOpen(g, date) {
			continue
		}

		sim := Similarity(norm, g.CanonicalDescription)
		if sim < d.cfg.MerchantSimilarity {
			continue
		}

		deviation := math.Abs(amount - g.runningAverage)
		if !d.withinTolerance(deviation, g.runningAverage) {
			continue
		}

		switch {
		case best == nil,
			sim > bestSim,
			sim == bestSim && deviation < bestDeviation,
			sim == bestSim && deviation == bestDeviation && g.updated > best.updated:
			best, bestSim, bestDeviation = g, sim, deviation
		}
	}

	return best
}

func (d *Detector) isOpen(g *Group, date civil.Date) bool {
	if d.cfg.MaxGapDays == 0 {
		return true
	}
	return date.DaysSince(g.lastDate) <= d.cfg.MaxGapDays
}

func (d *Detector) withinTolerance(deviation, average float64) bool {
	if d.cfg.ToleranceMode == ToleranceAbsolute {
		return deviation <= d.cfg.AmountTolerance
	}
	return deviation <= d.cfg.AmountTolerance*math.Abs(average)
}

func (g *Group) admit(txn model.Transaction, norm string, date civil.Date, seq int) {
	n := float64(len(g.Members))
	g.runningAverage = (g.runningAverage*n + txn.Amount) / (n + 1)
	g.Members = append(g.Members, txn)
	g.normalized = append(g.normalized, norm)
	g.lastDate = date
	g.updated = seq
}

// refreshCanonical switches the group label to its most frequent member
// description, but only when every member still meets the similarity
// threshold against the new label.
func (d *Detector) refreshCanonical(g *Group) {
	candidate := mostFrequent(g.normalized)
	if candidate == g.CanonicalDescription {
		return
	}
	for _, norm := range g.normalized {
		if Similarity(norm, candidate) < d.cfg.MerchantSimilarity {
			return
		}
	}
	g.CanonicalDescription = candidate
}

// mostFrequent returns the most common string; ties go to the shorter one,
// then to the lexicographically smaller one.
func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	var best string
	bestCount := 0
	for v, c := range counts {
		switch {
		case c > bestCount,
			c == bestCount && len(v) < len(best),
			c == bestCount && len(v) == len(best) && v < best:
			best, bestCount = v, c
		}
	}
	return best
}

// sortByDate returns a copy of transactions in ascending date order.
// Same-day transactions are ordered by amount, description, account and ID
// so the grouping does not depend on input order.
func sortByDate(transactions []model.Transaction) []model.Transaction {
	sorted := make([]model.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if da, db := a.CalendarDate(), b.CalendarDate(); da != db {
			return da.Before(db)
		}
		if a.Amount != b.Amount {
			return a.Amount < b.Amount
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.ID < b.ID
	})
	return sorted
}
