package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// Account describes one account linked to the access token.
type Account struct {
	ID   string
	Name string
	Type model.AccountType
}

// TransactionFetcher defines the contract for fetching transaction data.
// Commands depend on it so tests can substitute MockClient.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccounts(ctx context.Context) ([]Account, error)
}
