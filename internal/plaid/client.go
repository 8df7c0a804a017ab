// Package plaid imports transactions from the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
)

const (
	dateLayout = "2006-01-02"
	pageSize   = int32(500) // Plaid's max page size
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string `mapstructure:"client_id"`
	Secret      string `mapstructure:"secret"`
	Environment string `mapstructure:"environment"` // sandbox or production
	AccessToken string `mapstructure:"access_token"`
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	case c.Secret == "":
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	case c.AccessToken == "":
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	case c.Environment == "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}

	if _, ok := environments[c.Environment]; !ok {
		return fmt.Errorf("%w: invalid Plaid environment %q: must be sandbox or production", common.ErrInvalidConfig, c.Environment)
	}
	return nil
}

var environments = map[string]plaid.Environment{
	"sandbox":    plaid.Sandbox,
	"production": plaid.Production,
}

// Client implements the TransactionFetcher interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accessToken string
	retryOpts   common.RetryOptions
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	configuration.UseEnvironment(environments[cfg.Environment])

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts:   common.DefaultRetryOptions(),
	}, nil
}

// GetTransactions fetches transactions from Plaid within the specified date range.
// Plaid already reports money leaving the account as a positive amount, which
// is the convention used throughout this module.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date %s is after end date %s", startDate.Format(dateLayout), endDate.Format(dateLayout))
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format(dateLayout),
		"end_date", endDate.Format(dateLayout))

	var (
		all          []plaid.Transaction
		accountTypes = make(map[string]model.AccountType)
		offset       int32
	)

	for {
		var page []plaid.Transaction

		err := c.call(ctx, "fetch transactions", func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format(dateLayout),
				endDate.Format(dateLayout),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return err
			}

			page = resp.GetTransactions()
			for _, account := range resp.GetAccounts() {
				accountTypes[account.GetAccountId()] = mapAccountType(account)
			}

			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	transactions := make([]model.Transaction, 0, len(all))
	for _, pt := range all {
		if pt.GetPending() {
			continue
		}
		tx, err := mapPlaidTransaction(pt, accountTypes)
		if err != nil {
			c.logger.Warn("Skipping Plaid transaction", "id", pt.GetTransactionId(), "error", err)
			continue
		}
		transactions = append(transactions, tx)
	}

	c.logger.Info("Fetched all transactions", "count", len(transactions))
	return transactions, nil
}

// GetAccounts lists the accounts linked to the access token.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	var accounts []plaid.AccountBase
	err := c.call(ctx, "fetch accounts", func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return err
		}
		accounts = resp.GetAccounts()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))

	result := make([]Account, 0, len(accounts))
	for _, account := range accounts {
		result = append(result, Account{
			ID:   account.GetAccountId(),
			Name: account.GetName(),
			Type: mapAccountType(account),
		})
	}
	return result, nil
}

// call runs fn with retries, classifying Plaid errors on the way.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	return common.WithRetry(ctx, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		return c.classifyError(op, err)
	}, c.retryOpts)
}

func (c *Client) classifyError(op string, err error) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("%w: failed to %s: %v", common.ErrPlaidConnection, op, err)
	}

	if plaidErr.ErrorCode == "RATE_LIMIT_EXCEEDED" || string(plaidErr.ErrorType) == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Rate limit hit, will retry", "error", plaidErr.ErrorMessage)
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidErr.ErrorMessage),
			Retryable: true,
		}
	}

	return fmt.Errorf("%w: %s - %s", common.ErrPlaidConnection, plaidErr.ErrorCode, plaidErr.ErrorMessage)
}

func mapAccountType(account plaid.AccountBase) model.AccountType {
	switch account.GetType() {
	case plaid.ACCOUNTTYPE_CREDIT:
		return model.AccountCredit
	case plaid.ACCOUNTTYPE_DEPOSITORY:
		if account.GetSubtype() == plaid.ACCOUNTSUBTYPE_SAVINGS {
			return model.AccountSavings
		}
	}
	return model.AccountChequing
}

// mapPlaidTransaction converts a Plaid transaction to our internal model.
func mapPlaidTransaction(pt plaid.Transaction, accountTypes map[string]model.AccountType) (model.Transaction, error) {
	date, err := time.ParseInLocation(dateLayout, pt.GetDate(), time.UTC)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", pt.GetDate(), err)
	}

	accountType, ok := accountTypes[pt.GetAccountId()]
	if !ok {
		accountType = model.AccountChequing
	}

	merchantName := pt.GetMerchantName()
	if merchantName == "" {
		merchantName = pt.GetName()
	}

	var transactionType string
	switch pt.GetPaymentChannel() {
	case "online":
		transactionType = "ONLINE"
	case "in store":
		transactionType = "POS"
	case "":
	default:
		transactionType = "OTHER"
	}
	if pt.GetCheckNumber() != "" {
		transactionType = "CHECK"
	}

	tx := model.Transaction{
		Date:         date,
		ID:           pt.GetTransactionId(),
		Description:  pt.GetName(),
		MerchantName: cleanMerchantName(merchantName),
		AccountID:    pt.GetAccountId(),
		AccountType:  accountType,
		Amount:       pt.GetAmount(),
		Type:         transactionType,
		CheckNumber:  pt.GetCheckNumber(),
	}
	tx.Hash = tx.GenerateHash()
	return tx, nil
}

var corporateSuffixes = []string{" Llc", " Inc", " Corp", " Corporation", " Company", " Co", " Ltd", " Limited"}

// cleanMerchantName title-cases a merchant name and strips trailing
// transaction IDs and corporate suffixes.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// "MERCHANT 123456789": long digit runs are transaction IDs
	if n := len(words); n > 1 && len(words[n-1]) > 5 && isAllDigits(words[n-1]) {
		words = words[:n-1]
	}
	name = strings.Join(words, " ")

	for changed := true; changed; {
		changed = false
		for _, suffix := range corporateSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

var _ TransactionFetcher = (*Client)(nil)
