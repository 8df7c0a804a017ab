// Package classification assigns spending categories to transactions from
// ordered keyword rules.
package classification

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/spice-cadence/internal/model"
)

// compiledRule holds a rule with its keywords folded into one regex.
type compiledRule struct {
	matcher *regexp.Regexp
	model.CategoryRule
}

// Categorizer implements keyword-based transaction classification.
type Categorizer struct {
	rules []compiledRule
	mu    sync.RWMutex
}

// NewCategorizer compiles rules. Rules are evaluated by ascending Priority;
// rules with equal priority keep their input order.
func NewCategorizer(rules []model.CategoryRule) (*Categorizer, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Categorizer{rules: compiled}, nil
}

func compileRules(rules []model.CategoryRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))

	for _, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("category rule has no name")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate category rule %q", name)
		}
		seen[name] = true

		alternatives := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				alternatives = append(alternatives, regexp.QuoteMeta(kw))
			}
		}
		// A rule without keywords (the fallback) never matches on its own.
		if len(alternatives) == 0 {
			continue
		}

		matcher, err := regexp.Compile("(?i)(" + strings.Join(alternatives, "|") + ")")
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", name, err)
		}

		r.Name = name
		compiled = append(compiled, compiledRule{CategoryRule: r, matcher: matcher})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority < compiled[j].Priority
	})
	return compiled, nil
}

// Categorize returns the first matching rule's name, or model.DefaultCategory.
func (c *Categorizer) Categorize(txn *model.Transaction) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rule := range c.rules {
		if rule.RequireNegative && !txn.IsIncome() {
			continue
		}
		if rule.matcher.MatchString(txn.Description) {
			return rule.Name
		}
	}
	return model.DefaultCategory
}

// CategorizeAll sets Category on every transaction that does not have one.
func (c *Categorizer) CategorizeAll(ctx context.Context, transactions []model.Transaction) error {
	for i := range transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if transactions[i].Category == "" {
			transactions[i].Category = c.Categorize(&transactions[i])
		}
	}
	return nil
}

// UpdateRules replaces the rule set.
func (c *Categorizer) UpdateRules(rules []model.CategoryRule) error {
	compiled, err := compileRules(rules)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.rules = compiled
	c.mu.Unlock()
	return nil
}

// Categories returns the rule names in evaluation order followed by the
// default category.
func (c *Categorizer) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, model.DefaultCategory)
}
