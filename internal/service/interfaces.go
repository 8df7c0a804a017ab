// Package service defines the interfaces shared between the commands and the
// persistence layer.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// TransactionFilter narrows a transaction query. Zero values match everything.
type TransactionFilter struct {
	StartDate   *time.Time // inclusive
	EndDate     *time.Time // inclusive
	AccountType model.AccountType
	Category    string
	Limit       int
	Offset      int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// SaveTransactions inserts transactions, skipping any whose hash is
	// already stored, and returns how many rows were new.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionCount(ctx context.Context) (int, error)
	GetEarliestTransactionDate(ctx context.Context) (time.Time, error)
	GetLatestTransactionDate(ctx context.Context) (time.Time, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
