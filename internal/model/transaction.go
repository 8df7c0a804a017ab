// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// AccountType identifies the kind of account a transaction was posted to.
type AccountType string

// Account type constants.
const (
	AccountChequing AccountType = "chequing"
	AccountSavings  AccountType = "savings"
	AccountVisa     AccountType = "visa"
	AccountCredit   AccountType = "credit"
)

// Transaction represents a single financial transaction from any source.
//
// Amounts are signed. Sources in this repository use positive values for
// money leaving the account and negative values for money coming in; the
// recurring detector never reinterprets the sign.
type Transaction struct {
	Date         time.Time
	ID           string
	Description  string // Raw transaction description
	MerchantName string // Cleaned merchant name, when the source provides one
	AccountID    string
	AccountType  AccountType
	Category     string
	Hash         string
	Amount       float64

	// Optional metadata that may be available depending on source
	Type        string // Transaction type (e.g., DEBIT, CHECK, PAYMENT, ATM)
	CheckNumber string
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		strings.TrimSpace(t.Description),
		t.AccountType,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// CalendarDate returns the transaction date without time-of-day.
func (t *Transaction) CalendarDate() civil.Date {
	return civil.DateOf(t.Date)
}

// IsExpense reports whether money left the account.
func (t *Transaction) IsExpense() bool {
	return t.Amount > 0
}

// IsIncome reports whether money came into the account.
func (t *Transaction) IsIncome() bool {
	return t.Amount < 0
}
