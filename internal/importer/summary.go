package importer

import (
	"cablesync/internal/inventory"
)

// Tally counts outcomes per change type and severity. Every known change type and
// severity is present, so tallying the same outcomes always yields the same summary.
func Tally(imp *Import, outcomes []inventory.Outcome) *Summary {
	summary := &Summary{
		ImportID:         imp.ID,
		ScopeID:          imp.ScopeID,
		PreviousImportID: imp.PreviousImportID,
		ByChangeType:     make(map[string]int, len(inventory.AllChangeTypes())),
		BySeverity:       make(map[string]int, len(inventory.AllSeverities())),
		TotalEntities:    imp.EntityCount,
	}
	for _, ct := range inventory.AllChangeTypes() {
		summary.ByChangeType[string(ct)] = 0
	}
	for _, sev := range inventory.AllSeverities() {
		summary.BySeverity[sev.String()] = 0
	}

	for _, o := range outcomes {
		summary.ByChangeType[string(o.ChangeType)]++
		summary.BySeverity[o.Severity.String()]++
		summary.TotalEvents++
	}
	return summary
}

func outcomesOf(events []inventory.ChangeEvent) []inventory.Outcome {
	outcomes := make([]inventory.Outcome, len(events))
	for i, e := range events {
		outcomes[i] = inventory.Outcome{ChangeType: e.ChangeType, Severity: e.Severity}
	}
	return outcomes
}
