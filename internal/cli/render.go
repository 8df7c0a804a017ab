package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-cadence/internal/common"
	"github.com/Veraticus/spice-cadence/internal/model"
	"github.com/Veraticus/spice-cadence/internal/recurring"
)

// Format selects how results are written.
type Format string

// Supported output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want table, csv or json)", common.ErrInvalidConfig, s)
	}
}

// Renderer writes detection results in one format.
type Renderer struct {
	w      io.Writer
	format Format
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format}
}

// PatternRecord is the flat form of a pattern used by CSV and JSON output.
type PatternRecord struct {
	FirstDate           civil.Date       `json:"first_date"`
	LastDate            civil.Date       `json:"last_date"`
	Description         string           `json:"description"`
	Category            string           `json:"category,omitempty"`
	Period              model.PeriodKind `json:"period"`
	Occurrences         int              `json:"occurrences"`
	AverageIntervalDays float64          `json:"average_interval_days"`
	IntervalVariance    float64          `json:"interval_variance"`
	AverageAmount       float64          `json:"average_amount"`
	AmountVariance      float64          `json:"amount_variance"`
	Confidence          float64          `json:"confidence"`
	Predictable         bool             `json:"predictable"`
}

// PredictionRecord is the flat form of a prediction.
type PredictionRecord struct {
	Date        civil.Date       `json:"date"`
	Description string           `json:"description"`
	Category    string           `json:"category,omitempty"`
	Period      model.PeriodKind `json:"period"`
	Amount      float64          `json:"amount"`
	Step        int              `json:"step"`
}

// OverdueRecord is the flat form of an overdue flag.
type OverdueRecord struct {
	LastDate      civil.Date       `json:"last_date"`
	ExpectedDate  civil.Date       `json:"expected_date"`
	Description   string           `json:"description"`
	Category      string           `json:"category,omitempty"`
	Period        model.PeriodKind `json:"period"`
	AverageAmount float64          `json:"average_amount"`
	DaysOverdue   int              `json:"days_overdue"`
}

// NewPatternRecord flattens a pattern.
func NewPatternRecord(p *model.RecurringPattern) PatternRecord {
	return PatternRecord{
		Description:         p.CanonicalDescription,
		Category:            p.Category,
		Period:              p.Period,
		Occurrences:         p.Occurrences(),
		FirstDate:           p.FirstDate,
		LastDate:            p.LastDate,
		AverageIntervalDays: p.AverageIntervalDays,
		IntervalVariance:    p.IntervalVariance,
		AverageAmount:       p.AverageAmount,
		AmountVariance:      p.AmountVariance,
		Confidence:          p.Confidence,
		Predictable:         p.Period.IsPredictable(),
	}
}

// NewPredictionRecord flattens a prediction.
func NewPredictionRecord(p *model.Prediction) PredictionRecord {
	return PredictionRecord{
		Date:        p.Date,
		Description: p.Pattern.CanonicalDescription,
		Category:    p.Pattern.Category,
		Period:      p.Pattern.Period,
		Amount:      p.Amount,
		Step:        p.Step,
	}
}

// NewOverdueRecord flattens an overdue flag.
func NewOverdueRecord(f *model.OverdueFlag) OverdueRecord {
	return OverdueRecord{
		Description:   f.Pattern.CanonicalDescription,
		Category:      f.Pattern.Category,
		Period:        f.Pattern.Period,
		LastDate:      f.Pattern.LastDate,
		ExpectedDate:  f.ExpectedDate,
		AverageAmount: f.Pattern.AverageAmount,
		DaysOverdue:   f.DaysOverdue,
	}
}

// Patterns writes detected patterns. In table form predictable patterns are
// listed first, followed by the irregular ones as detected but unpredictable.
func (r *Renderer) Patterns(patterns []model.RecurringPattern) error {
	records := make([]PatternRecord, len(patterns))
	for i := range patterns {
		records[i] = NewPatternRecord(&patterns[i])
	}

	switch r.format {
	case FormatJSON:
		return r.writeJSON(records)
	case FormatCSV:
		rows := make([][]string, len(records))
		for i, rec := range records {
			rows[i] = []string{
				rec.Description,
				rec.Category,
				string(rec.Period),
				strconv.Itoa(rec.Occurrences),
				rec.FirstDate.String(),
				rec.LastDate.String(),
				formatFloat(rec.AverageIntervalDays, 2),
				formatFloat(rec.IntervalVariance, 2),
				formatMoney(rec.AverageAmount),
				formatFloat(rec.AmountVariance, 2),
				formatFloat(rec.Confidence, 3),
				strconv.FormatBool(rec.Predictable),
			}
		}
		return r.writeCSV([]string{
			"description", "category", "period", "occurrences", "first_date", "last_date",
			"average_interval_days", "interval_variance", "average_amount", "amount_variance",
			"confidence", "predictable",
		}, rows)
	}

	if len(records) == 0 {
		return r.println(FormatInfo("No recurring patterns found."))
	}

	var predictable, irregular [][]string
	for _, rec := range records {
		if rec.Predictable {
			predictable = append(predictable, []string{
				rec.Description,
				rec.Category,
				string(rec.Period),
				strconv.Itoa(rec.Occurrences),
				formatFloat(rec.AverageIntervalDays, 1),
				formatMoney(rec.AverageAmount),
				rec.LastDate.String(),
				formatPercent(rec.Confidence),
			})
			continue
		}
		irregular = append(irregular, []string{
			rec.Description,
			rec.Category,
			strconv.Itoa(rec.Occurrences),
			formatMoney(rec.AverageAmount),
			rec.LastDate.String(),
		})
	}

	if len(predictable) > 0 {
		if err := r.println(FormatTitle(fmt.Sprintf("Recurring patterns (%d)", len(predictable)))); err != nil {
			return err
		}
		headers := []string{"Description", "Category", "Period", "Count", "Every (days)", "Avg amount", "Last seen", "Confidence"}
		if err := r.println(renderTable(headers, predictable, 3, 4, 5, 7)); err != nil {
			return err
		}
	}

	if len(irregular) > 0 {
		if err := r.println(FormatWarning(fmt.Sprintf("Detected but unpredictable (%d)", len(irregular)))); err != nil {
			return err
		}
		headers := []string{"Description", "Category", "Count", "Avg amount", "Last seen"}
		if err := r.println(renderTable(headers, irregular, 2, 3)); err != nil {
			return err
		}
	}
	return nil
}

// Predictions writes projected occurrences in date order.
func (r *Renderer) Predictions(predictions []model.Prediction) error {
	records := make([]PredictionRecord, len(predictions))
	for i := range predictions {
		records[i] = NewPredictionRecord(&predictions[i])
	}

	switch r.format {
	case FormatJSON:
		return r.writeJSON(records)
	case FormatCSV:
		rows := make([][]string, len(records))
		for i, rec := range records {
			rows[i] = []string{
				rec.Date.String(),
				rec.Description,
				rec.Category,
				string(rec.Period),
				formatMoney(rec.Amount),
				strconv.Itoa(rec.Step),
			}
		}
		return r.writeCSV([]string{"date", "description", "category", "period", "amount", "step"}, rows)
	}

	if len(records) == 0 {
		return r.println(FormatInfo("No upcoming occurrences in the horizon."))
	}

	rows := make([][]string, len(records))
	total := decimal.Zero
	for i, rec := range records {
		rows[i] = []string{
			rec.Date.String(),
			rec.Description,
			rec.Category,
			string(rec.Period),
			formatMoney(rec.Amount),
		}
		total = total.Add(decimal.NewFromFloat(rec.Amount))
	}

	if err := r.println(FormatTitle(fmt.Sprintf("Upcoming occurrences (%d)", len(records)))); err != nil {
		return err
	}
	if err := r.println(renderTable([]string{"Date", "Description", "Category", "Period", "Amount"}, rows, 4)); err != nil {
		return err
	}
	return r.println(SubtleStyle.Render("Projected net outflow: " + total.StringFixed(2)))
}

// PatternPredictionsRecord is the upcoming occurrences of one pattern.
type PatternPredictionsRecord struct {
	Description string             `json:"description"`
	Category    string             `json:"category,omitempty"`
	Period      model.PeriodKind   `json:"period"`
	Total       float64            `json:"total"`
	Predictions []PredictionRecord `json:"predictions"`
}

// PredictionsByPattern writes projected occurrences grouped per pattern.
func (r *Renderer) PredictionsByPattern(groups []recurring.PredictionGroup) error {
	records := make([]PatternPredictionsRecord, len(groups))
	for i, g := range groups {
		rec := PatternPredictionsRecord{
			Description: g.Pattern.CanonicalDescription,
			Category:    g.Pattern.Category,
			Period:      g.Pattern.Period,
			Predictions: make([]PredictionRecord, len(g.Predictions)),
		}
		total := decimal.Zero
		for j := range g.Predictions {
			rec.Predictions[j] = NewPredictionRecord(&g.Predictions[j])
			total = total.Add(decimal.NewFromFloat(g.Predictions[j].Amount))
		}
		rec.Total = total.InexactFloat64()
		records[i] = rec
	}

	switch r.format {
	case FormatJSON:
		return r.writeJSON(records)
	case FormatCSV:
		rows := make([][]string, len(records))
		for i, rec := range records {
			next := ""
			if len(rec.Predictions) > 0 {
				next = rec.Predictions[0].Date.String()
			}
			rows[i] = []string{
				rec.Description,
				rec.Category,
				string(rec.Period),
				strconv.Itoa(len(rec.Predictions)),
				next,
				predictionDates(rec.Predictions),
				formatMoney(rec.Total),
			}
		}
		return r.writeCSV([]string{"description", "category", "period", "occurrences", "next_date", "dates", "total"}, rows)
	}

	if len(records) == 0 {
		return r.println(FormatInfo("No upcoming occurrences in the horizon."))
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			rec.Description,
			rec.Category,
			string(rec.Period),
			predictionDates(rec.Predictions),
			formatMoney(rec.Total),
		}
	}
	if err := r.println(FormatTitle(fmt.Sprintf("Upcoming by pattern (%d)", len(records)))); err != nil {
		return err
	}
	return r.println(renderTable([]string{"Description", "Category", "Period", "Dates", "Total"}, rows, 4))
}

func predictionDates(predictions []PredictionRecord) string {
	dates := make([]string, len(predictions))
	for i, p := range predictions {
		dates[i] = p.Date.String()
	}
	return strings.Join(dates, " ")
}

// Overdue writes overdue flags, most overdue first.
func (r *Renderer) Overdue(flags []model.OverdueFlag) error {
	records := make([]OverdueRecord, len(flags))
	for i := range flags {
		records[i] = NewOverdueRecord(&flags[i])
	}

	switch r.format {
	case FormatJSON:
		return r.writeJSON(records)
	case FormatCSV:
		rows := make([][]string, len(records))
		for i, rec := range records {
			rows[i] = []string{
				rec.Description,
				rec.Category,
				string(rec.Period),
				rec.LastDate.String(),
				rec.ExpectedDate.String(),
				strconv.Itoa(rec.DaysOverdue),
				formatMoney(rec.AverageAmount),
			}
		}
		return r.writeCSV([]string{"description", "category", "period", "last_date", "expected_date", "days_overdue", "average_amount"}, rows)
	}

	if len(records) == 0 {
		return r.println(FormatSuccess("Nothing overdue."))
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			rec.Description,
			rec.Category,
			string(rec.Period),
			rec.LastDate.String(),
			rec.ExpectedDate.String(),
			strconv.Itoa(rec.DaysOverdue),
			formatMoney(rec.AverageAmount),
		}
	}

	if err := r.println(FormatWarning(fmt.Sprintf("Overdue (%d)", len(records)))); err != nil {
		return err
	}
	headers := []string{"Description", "Category", "Period", "Last seen", "Expected", "Days late", "Avg amount"}
	return r.println(renderTable(headers, rows, 5, 6))
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (r *Renderer) writeCSV(header []string, rows [][]string) error {
	w := csv.NewWriter(r.w)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func (r *Renderer) println(s string) error {
	_, err := fmt.Fprintln(r.w, s)
	return err
}

// renderTable draws a bordered table. numeric lists the columns to
// right-align.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, col := range numeric {
		right[col] = true
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case right[col]:
				return NumericCellStyle
			default:
				return TableCellStyle
			}
		})

	return t.String()
}

func formatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

func formatFloat(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func formatPercent(v float64) string {
	return decimal.NewFromFloat(v * 100).StringFixed(0) + "%"
}
