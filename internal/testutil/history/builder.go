// Package history builds synthetic transaction histories for tests. Series
// are generated on exact calendar steps so expected intervals, amounts and
// predictions can be worked out by hand.
//
// Example usage:
//
//	txns := history.NewBuilder(t).
//		Monthly("NETFLIX.COM", 16.99, civil.Date{Year: 2024, Month: 1, Day: 3}, 6).
//		Every("GYM MEMBERSHIP", 25, civil.Date{Year: 2024, Month: 1, Day: 5}, 14, 8).
//		Build()
package history

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// Builder provides a fluent interface for constructing test histories.
type Builder interface {
	// Account sets the account used by transactions added afterwards.
	Account(id string, accountType model.AccountType) Builder

	// Category sets the category used by transactions added afterwards.
	Category(name string) Builder

	// Every adds count transactions spaced everyDays apart.
	Every(description string, amount float64, start civil.Date, everyDays, count int) Builder

	// Monthly adds count transactions on the same day of consecutive months.
	Monthly(description string, amount float64, start civil.Date, count int) Builder

	// At adds one transaction per offset, counted in days from start.
	At(description string, amount float64, start civil.Date, offsets ...int) Builder

	// WithTransaction adds a transaction as-is, filling in identity fields.
	WithTransaction(txn model.Transaction) Builder

	// WithFixture adds a predefined history.
	WithFixture(fixture Fixture) Builder

	// Build returns the transactions in date order with IDs and hashes set.
	Build() []model.Transaction
}

type builder struct {
	t            *testing.T
	accountID    string
	accountType  model.AccountType
	category     string
	transactions []model.Transaction
}

// NewBuilder creates a new history builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &builder{
		t:           t,
		accountID:   "chequing-1",
		accountType: model.AccountChequing,
	}
}

func (b *builder) Account(id string, accountType model.AccountType) Builder {
	b.accountID = id
	b.accountType = accountType
	return b
}

func (b *builder) Category(name string) Builder {
	b.category = name
	return b
}

func (b *builder) Every(description string, amount float64, start civil.Date, everyDays, count int) Builder {
	b.t.Helper()
	if everyDays <= 0 {
		b.t.Fatalf("history: every must be positive, got %d", everyDays)
	}
	for i := 0; i < count; i++ {
		b.add(description, amount, start.AddDays(i*everyDays))
	}
	return b
}

func (b *builder) Monthly(description string, amount float64, start civil.Date, count int) Builder {
	for i := 0; i < count; i++ {
		b.add(description, amount, AddMonths(start, i))
	}
	return b
}

func (b *builder) At(description string, amount float64, start civil.Date, offsets ...int) Builder {
	for _, off := range offsets {
		b.add(description, amount, start.AddDays(off))
	}
	return b
}

func (b *builder) WithTransaction(txn model.Transaction) Builder {
	b.transactions = append(b.transactions, txn)
	return b
}

func (b *builder) WithFixture(fixture Fixture) Builder {
	b.t.Helper()
	apply, ok := fixtures[fixture]
	if !ok {
		b.t.Fatalf("history: unknown fixture %q", fixture)
	}
	apply(b)
	return b
}

func (b *builder) add(description string, amount float64, date civil.Date) {
	b.transactions = append(b.transactions, model.Transaction{
		Date:        date.In(time.UTC),
		Description: description,
		Amount:      amount,
		AccountID:   b.accountID,
		AccountType: b.accountType,
		Category:    b.category,
	})
}

func (b *builder) Build() []model.Transaction {
	out := make([]model.Transaction, len(b.transactions))
	copy(out, b.transactions)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	for i := range out {
		if out[i].AccountID == "" {
			out[i].AccountID = b.accountID
		}
		if out[i].AccountType == "" {
			out[i].AccountType = b.accountType
		}
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("hist-%04d", i+1)
		}
		if out[i].Hash == "" {
			out[i].Hash = out[i].GenerateHash()
		}
	}
	return out
}

// AddMonths moves d by months calendar months, normalizing overflow the way
// time.AddDate does.
func AddMonths(d civil.Date, months int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(0, months, 0))
}
