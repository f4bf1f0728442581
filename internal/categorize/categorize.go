// Package categorize assigns a category label to a transaction description
// using an ordered keyword table. The first matching rule wins.
package categorize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback is returned when no rule matches
const Fallback = "Other"

// Rule maps case-insensitive description keywords to a category label
type Rule struct {
	Label    string
	Keywords []string
}

var defaultRules = []Rule{
	{Label: "housing", Keywords: []string{"rent", "landlord"}},
	{Label: "groceries", Keywords: []string{"grocery", "metro", "walmart", "loblaws", "superstore", "freshco"}},
	{Label: "food & drink", Keywords: []string{"starbucks", "tim hortons", "coffee", "restaurant", "pizza", "mcdonald"}},
	{Label: "transport", Keywords: []string{"uber", "lyft", "transit", "gas", "petro", "shell"}},
	{Label: "subscriptions", Keywords: []string{"netflix", "spotify", "prime", "membership", "gym"}},
	{Label: "bills", Keywords: []string{"hydro", "bell", "rogers", "internet", "phone", "utility"}},
	{Label: "shopping", Keywords: []string{"amazon", "ikea", "costco", "store", "winners"}},
	{Label: "health", Keywords: []string{"pharmacy", "clinic", "dental", "vision"}},
	{Label: "income", Keywords: []string{"payroll", "salary", "etransfer", "refund", "interest"}},
}

// Categorizer classifies descriptions against a fixed rule table
type Categorizer struct {
	rules  []Rule
	labels []string
}

// New creates a categorizer with the built-in rules
func New() *Categorizer {
	return NewWithRules(defaultRules)
}

// NewWithRules creates a categorizer with custom rules, evaluated in order
func NewWithRules(rules []Rule) *Categorizer {
	title := cases.Title(language.Und)
	c := &Categorizer{
		rules:  make([]Rule, len(rules)),
		labels: make([]string, len(rules)),
	}
	for i, r := range rules {
		kw := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kw[j] = strings.ToLower(k)
		}
		c.rules[i] = Rule{Label: r.Label, Keywords: kw}
		c.labels[i] = title.String(r.Label)
	}
	return c
}

// Classify returns the title-cased label of the first matching rule, or Fallback
func (c *Categorizer) Classify(description string) string {
	s := strings.ToLower(description)
	for i, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(s, k) {
				return c.labels[i]
			}
		}
	}
	return Fallback
}

// Rules returns a copy of the rule table in evaluation order
func (c *Categorizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Label: r.Label, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
