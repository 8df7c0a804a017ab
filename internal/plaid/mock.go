package plaid

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// MockClient is a TransactionFetcher for tests.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	GetTransactionsFn func(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccountsFn     func(ctx context.Context) ([]Account, error)

	// Call tracking
	GetTransactionsCalls []GetTransactionsCall
	GetAccountsCalls     int

	mu sync.Mutex
}

// GetTransactionsCall records the parameters of a GetTransactions call.
type GetTransactionsCall struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// GetTransactions records the call and delegates to GetTransactionsFn.
func (m *MockClient) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	m.mu.Lock()
	m.GetTransactionsCalls = append(m.GetTransactionsCalls, GetTransactionsCall{
		StartDate: startDate,
		EndDate:   endDate,
	})
	m.mu.Unlock()

	if m.GetTransactionsFn != nil {
		return m.GetTransactionsFn(ctx, startDate, endDate)
	}
	return []model.Transaction{}, nil
}

// GetAccounts records the call and delegates to GetAccountsFn.
func (m *MockClient) GetAccounts(ctx context.Context) ([]Account, error) {
	m.mu.Lock()
	m.GetAccountsCalls++
	m.mu.Unlock()

	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx)
	}
	return []Account{}, nil
}

var _ TransactionFetcher = (*MockClient)(nil)
