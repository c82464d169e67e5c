// Package classification evaluates the transition table that turns a difference
// between two snapshots into a change type and a severity. Every function here is
// pure: the same inputs always produce the same outcome.
package classification

import (
	"github.com/shopspring/decimal"

	"cablesync/internal/inventory"
)

var unclassified = inventory.Outcome{
	ChangeType: inventory.ChangeUnclassified,
	Severity:   inventory.SeverityBlock,
}

type Table struct {
	rules             []Rule
	safeToDisappear   map[inventory.Status]bool
	regressionEpsilon decimal.Decimal
}

func NewTable(rules []Rule, safeToDisappear []inventory.Status, regressionEpsilon decimal.Decimal) *Table {
	safe := make(map[inventory.Status]bool, len(safeToDisappear))
	for _, s := range safeToDisappear {
		safe[s] = true
	}
	if regressionEpsilon.IsNegative() {
		regressionEpsilon = decimal.Zero
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Table{
		rules:             copied,
		safeToDisappear:   safe,
		regressionEpsilon: regressionEpsilon,
	}
}

func DefaultTable() *Table {
	return NewTable(DefaultRules(), DefaultSafeToDisappear(), DefaultRegressionEpsilon)
}

// WithRegressionEpsilon returns a copy of the table using the given epsilon.
func (t *Table) WithRegressionEpsilon(eps decimal.Decimal) *Table {
	return NewTable(t.rules, t.safeStatuses(), eps)
}

func (t *Table) RegressionEpsilon() decimal.Decimal {
	return t.regressionEpsilon
}

func (t *Table) safeStatuses() []inventory.Status {
	var out []inventory.Status
	for _, s := range inventory.AllStatuses() {
		if t.safeToDisappear[s] {
			out = append(out, s)
		}
	}
	return out
}

// ClassifyTransition returns false when the statuses are equal. A distinct pair no
// rule covers, or an unknown status, yields UNCLASSIFIED/BLOCK instead of an error.
func (t *Table) ClassifyTransition(oldStatus, newStatus inventory.Status, flagged bool) (inventory.Outcome, bool) {
	if oldStatus == newStatus {
		return inventory.Outcome{}, false
	}
	if !oldStatus.Valid() || !newStatus.Valid() {
		return unclassified, true
	}
	for _, rule := range t.rules {
		if rule.matches(oldStatus, newStatus, flagged) {
			return rule.Outcome, true
		}
	}
	return unclassified, true
}

// ClassifyDisappearance classifies a code present in the previous snapshot and
// absent from the current one, using only its prior status.
func (t *Table) ClassifyDisappearance(prior inventory.Status) inventory.Outcome {
	if t.safeToDisappear[prior] {
		return inventory.Outcome{
			ChangeType: inventory.ChangeDisappearedAllowed,
			Severity:   inventory.SeverityInfo,
		}
	}
	return inventory.Outcome{
		ChangeType: inventory.ChangeDisappearedUnexpected,
		Severity:   inventory.SeverityBlock,
	}
}

// ClassifyMeasure returns false when the values are equal (null equals only null).
// Losing more than the epsilon on a progress measure is BLOCK, any other change WARN.
func (t *Table) ClassifyMeasure(field inventory.MeasureField, oldValue, newValue inventory.Measure) (inventory.Outcome, bool) {
	if inventory.MeasureEqual(oldValue, newValue) {
		return inventory.Outcome{}, false
	}

	severity := inventory.SeverityWarn
	if field.TracksProgress() && t.isRegression(oldValue, newValue) {
		severity = inventory.SeverityBlock
	}

	return inventory.Outcome{
		ChangeType: inventory.ChangeMeasureChanged,
		Severity:   severity,
	}, true
}

func (t *Table) isRegression(oldValue, newValue inventory.Measure) bool {
	if !oldValue.Valid {
		return false
	}
	if !newValue.Valid {
		return oldValue.Decimal.GreaterThan(t.regressionEpsilon)
	}
	return oldValue.Decimal.Sub(newValue.Decimal).GreaterThan(t.regressionEpsilon)
}

// Uncovered lists the ordered distinct status pairs that fall through to UNCLASSIFIED
// for either flag value.
func (t *Table) Uncovered() [][2]inventory.Status {
	var gaps [][2]inventory.Status
	for _, from := range inventory.AllStatuses() {
		for _, to := range inventory.AllStatuses() {
			if from == to {
				continue
			}
			for _, flagged := range []bool{false, true} {
				if !t.covers(from, to, flagged) {
					gaps = append(gaps, [2]inventory.Status{from, to})
					break
				}
			}
		}
	}
	return gaps
}

func (t *Table) covers(from, to inventory.Status, flagged bool) bool {
	for _, rule := range t.rules {
		if rule.matches(from, to, flagged) {
			return true
		}
	}
	return false
}
