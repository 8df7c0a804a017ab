package history

import (
	"cloud.google.com/go/civil"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// Fixture names a predefined history.
type Fixture string

// Available fixtures.
const (
	// FixtureHousehold is six months of a typical household: a streaming
	// subscription, rent, a biweekly paycheque, an irregular hardware store
	// habit and a few one-off purchases.
	FixtureHousehold Fixture = "household"

	// FixtureLapsedRent is rent paid monthly for four months, then nothing.
	FixtureLapsedRent Fixture = "lapsed-rent"
)

// HouseholdStart is the first day covered by FixtureHousehold.
var HouseholdStart = civil.Date{Year: 2024, Month: 1, Day: 1}

var fixtures = map[Fixture]func(*builder){
	FixtureHousehold: func(b *builder) {
		start := HouseholdStart
		b.Category("Entertainment").
			Monthly("NETFLIX.COM 866-579-7172 CA", 16.99, start.AddDays(2), 6)
		b.Category("Housing").
			Monthly("RENT PAYMENT", 1500, start, 6)
		b.Category("Income").
			Every("ACME CORP PAYROLL", -2100, start.AddDays(4), 14, 13)
		b.Category("Shopping").
			At("HOME HARDWARE #221", 40, start, 0, 3, 43, 48, 108)
		b.Account("visa-1", model.AccountVisa).
			Category("Restaurants").
			At("PIZZA PLACE", 31.50, start, 12).
			At("THAI EXPRESS", 22.75, start, 77)
		b.Account("chequing-1", model.AccountChequing).Category("")
	},
	FixtureLapsedRent: func(b *builder) {
		b.Category("Housing").
			At("RENT PAYMENT", 1500, civil.Date{Year: 2024, Month: 1, Day: 1}, 0, 30, 60, 90).
			Category("")
	},
}
