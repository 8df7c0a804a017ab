// Package csvimport reads Simplii-style CSV exports for chequing and Visa
// accounts.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
)

// Format identifies the layout of an export.
type Format string

// Supported export formats.
const (
	FormatDebit Format = "debit" // Date, Transaction Details, Funds Out, Funds In
	FormatVisa  Format = "visa"  // as debit, plus Credit Card
)

// Default account IDs used when the export does not carry one.
const (
	DefaultDebitAccount = "simplii-chequing"
	DefaultVisaAccount  = "simplii-visa"
)

const (
	colDate    = "Date"
	colDetails = "Transaction Details"
	colOut     = "Funds Out"
	colIn      = "Funds In"
	colCard    = "Credit Card"
)

var dateLayouts = []string{"01/02/2006", "2006-01-02"}

// idNamespace scopes the UUIDv5 transaction IDs generated from hashes.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Veraticus/spice-cadence/csvimport"))

// RowError describes a row that could not be imported.
type RowError struct {
	Err  error
	Line int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of parsing one export.
type Result struct {
	Transactions []model.Transaction
	Skipped      []RowError
}

// Parser converts CSV exports into transactions.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a CSV parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "csvimport")}
}

// ParseFile opens path and parses it in the given format.
func (p *Parser) ParseFile(ctx context.Context, path string, format Format) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	result, err := p.Parse(ctx, f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// Parse reads an export from r.
//
// Funds Out becomes a positive amount and Funds In a negative one. Rows with
// no date are ignored. Rows that cannot be parsed are reported in
// Result.Skipped. Visa rows that are incoming payments are dropped because
// the chequing export already records them.
func (p *Parser) Parse(ctx context.Context, r io.Reader, format Format) (*Result, error) {
	if format != FormatDebit && format != FormatVisa {
		return nil, fmt.Errorf("%w: csv format %q", common.ErrUnsupportedFile, format)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv file", common.ErrUnsupportedFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns, err := indexColumns(header, format)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	seen := make(map[string]int)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.logger.Warn("Skipping malformed csv row", "line", line, "error", err)
			result.Skipped = append(result.Skipped, RowError{Line: line, Err: err})
			continue
		}

		txn, ok, err := p.convertRow(record, columns, format)
		if err != nil {
			p.logger.Warn("Skipping csv row", "line", line, "format", format, "error", err)
			result.Skipped = append(result.Skipped, RowError{Line: line, Err: err})
			continue
		}
		if !ok {
			continue
		}

		assignIdentity(&txn, seen)
		result.Transactions = append(result.Transactions, txn)
	}

	p.logger.Debug("Parsed csv export",
		"format", format,
		"transactions", len(result.Transactions),
		"skipped", len(result.Skipped))

	return result, nil
}

func indexColumns(header []string, format Format) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}

	required := []string{colDate, colDetails, colOut, colIn}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s export is missing column %q", common.ErrUnsupportedFile, format, name)
		}
	}
	return columns, nil
}

// convertRow returns ok=false for rows that are intentionally ignored.
func (p *Parser) convertRow(record []string, columns map[string]int, format Format) (model.Transaction, bool, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	dateStr := field(colDate)
	if dateStr == "" {
		return model.Transaction{}, false, nil
	}

	date, err := parseDate(dateStr)
	if err != nil {
		return model.Transaction{}, false, err
	}

	description := strings.Trim(field(colDetails), `"`)
	amount, err := parseAmount(field(colOut), field(colIn))
	if err != nil {
		return model.Transaction{}, false, err
	}

	if amount.IsZero() && description == "" {
		return model.Transaction{}, false, nil
	}

	txn := model.Transaction{
		Date:        date,
		Description: description,
		AccountType: model.AccountChequing,
		AccountID:   DefaultDebitAccount,
	}
	txn.Amount, _ = amount.Float64()

	if format == FormatVisa {
		if amount.IsNegative() && strings.Contains(strings.ToUpper(description), "PAYMENT") {
			return model.Transaction{}, false, nil
		}
		txn.AccountType = model.AccountVisa
		txn.AccountID = DefaultVisaAccount
		if card := field(colCard); card != "" {
			txn.AccountID = card
		}
	}

	return txn, true, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q, expected MM/DD/YYYY", s)
}

// parseAmount returns Funds Out as a positive amount, or Funds In negated.
// Both empty is a zero amount.
func parseAmount(fundsOut, fundsIn string) (decimal.Decimal, error) {
	if fundsOut != "" {
		return parseMoney(fundsOut)
	}
	if fundsIn != "" {
		in, err := parseMoney(fundsIn)
		if err != nil {
			return decimal.Zero, err
		}
		return in.Neg(), nil
	}
	return decimal.Zero, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// assignIdentity sets the hash and a deterministic ID. Identical rows in one
// export (two coffees on the same day) get an occurrence suffix so they are
// not collapsed into one, while re-importing the file still produces the
// same identities.
func assignIdentity(txn *model.Transaction, seen map[string]int) {
	hash := txn.GenerateHash()
	if n := seen[hash]; n > 0 {
		seen[hash] = n + 1
		hash = fmt.Sprintf("%s-%d", hash, n)
	} else {
		seen[hash] = 1
	}
	txn.Hash = hash
	txn.ID = uuid.NewSHA1(idNamespace, []byte(hash)).String()
}
