package recurring

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-cadence/internal/model"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func txnOn(id string, date civil.Date, description string, amount float64) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        date.In(time.UTC),
		Description: description,
		Amount:      amount,
		AccountType: model.AccountChequing,
	}
}

// seriesFrom builds one transaction per offset (in days from start).
func seriesFrom(prefix string, start civil.Date, offsets []int, description string, amount float64) []model.Transaction {
	txns := make([]model.Transaction, 0, len(offsets))
	for i, off := range offsets {
		txns = append(txns, txnOn(fmt.Sprintf("%s-%d", prefix, i), start.AddDays(off), description, amount))
	}
	return txns
}

func newTestDetector(t *testing.T, mutate func(*Config)) *Detector {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewDetector(cfg)
	require.NoError(t, err)
	return d
}

func ids(txns []model.Transaction) []string {
	out := make([]string, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}

func civilDate(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}
