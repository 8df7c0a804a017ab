package classification

import "github.com/Veraticus/spice-cadence/internal/model"

// DefaultRules returns the built-in category rules. Lower priority values are
// checked first, so "AMAZON CHANNELS" lands in Entertainment before the
// broader AMAZON keyword can claim it for Shopping.
func DefaultRules() []model.CategoryRule {
	return []model.CategoryRule{
		{
			Name:     "Groceries",
			Keywords: []string{"GROCERY", "CO-OP", "SUPERSTORE", "SAFEWAY", "WALMART", "COSTCO", "NO FRILLS"},
			Priority: 1,
		},
		{
			Name:     "Restaurants",
			Keywords: []string{"RESTAURANT", "MCDONALD", "PIZZA", "TIM HORTONS", "SUBWAY", "SHAWARMA"},
			Priority: 1,
		},
		{
			Name:     "Gas/Transportation",
			Keywords: []string{"PETRO", "SHELL", "PARKING", "ESSO", "MOBIL", "GAS"},
			Priority: 1,
		},
		{
			Name:     "Housing",
			Keywords: []string{"MORTGAGE", "RENT", "PROPERTY TAX"},
			Priority: 1,
		},
		{
			Name:     "Entertainment",
			Keywords: []string{"AMAZON CHANNELS", "NETFLIX", "SPOTIFY", "DISNEY PLUS", "CRAVE"},
			Priority: 1,
		},
		{
			Name:            "Income",
			Keywords:        []string{"PAYROLL", "DEPOSIT", "INTEREST"},
			Priority:        1,
			RequireNegative: true,
		},
		{
			Name:     "Utilities",
			Keywords: []string{"TELUS", "ENMAX", "UTILITY BILL", "HYDRO", "ELECTRIC", "ROGERS"},
			Priority: 2,
		},
		{
			Name:     "Shopping",
			Keywords: []string{"AMAZON", "CANADIAN TIRE", "WINNERS", "DOLLARAMA", "LONDON DRUGS"},
			Priority: 2,
		},
		{
			Name:     "Transfers",
			Keywords: []string{"TRANSFER", "BILL PAYMENT"},
			Priority: 3,
		},
	}
}
