package classification

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/inventory"
)

func measure(s string) inventory.Measure {
	return inventory.MeasureOf(decimal.RequireFromString(s))
}

func TestDefaultTable_CoversEveryDistinctPair(t *testing.T) {
	table := DefaultTable()
	assert.Empty(t, table.Uncovered())

	pairs := 0
	for _, from := range inventory.AllStatuses() {
		for _, to := range inventory.AllStatuses() {
			if from == to {
				continue
			}
			pairs++
			for _, flagged := range []bool{false, true} {
				outcome, ok := table.ClassifyTransition(from, to, flagged)
				require.True(t, ok, "%s -> %s", from, to)
				assert.True(t, outcome.ChangeType.Valid())
				assert.True(t, outcome.Severity.Valid())
				assert.NotEqual(t, inventory.ChangeUnclassified, outcome.ChangeType, "%s -> %s", from, to)
			}
		}
	}
	assert.Equal(t, 30, pairs)
}

func TestClassifyTransition_EqualStatusesEmitNothing(t *testing.T) {
	table := DefaultTable()
	for _, s := range inventory.AllStatuses() {
		_, ok := table.ClassifyTransition(s, s, false)
		assert.False(t, ok, s.String())
	}
}

func TestClassifyTransition_DefaultRules(t *testing.T) {
	tests := []struct {
		name     string
		from, to inventory.Status
		want     inventory.Outcome
	}{
		{"free eliminated", inventory.StatusFree, inventory.StatusEliminated,
			inventory.Outcome{ChangeType: inventory.ChangeEliminated, Severity: inventory.SeverityWarn}},
		{"reserved eliminated", inventory.StatusReserved, inventory.StatusEliminated,
			inventory.Outcome{ChangeType: inventory.ChangeEliminated, Severity: inventory.SeverityWarn}},
		{"in transit eliminated", inventory.StatusInTransit, inventory.StatusEliminated,
			inventory.Outcome{ChangeType: inventory.ChangeEliminated, Severity: inventory.SeverityBlock}},
		{"done eliminated", inventory.StatusDone, inventory.StatusEliminated,
			inventory.Outcome{ChangeType: inventory.ChangeEliminated, Severity: inventory.SeverityBlock}},
		{"reinstated", inventory.StatusEliminated, inventory.StatusDone,
			inventory.Outcome{ChangeType: inventory.ChangeReinstated, Severity: inventory.SeverityWarn}},
		{"done reopened", inventory.StatusDone, inventory.StatusFree,
			inventory.Outcome{ChangeType: inventory.ChangeReworkReopened, Severity: inventory.SeverityWarn}},
		{"done returned", inventory.StatusDone, inventory.StatusInTransit,
			inventory.Outcome{ChangeType: inventory.ChangeReworkReturned, Severity: inventory.SeverityWarn}},
		{"done blocked", inventory.StatusDone, inventory.StatusBlocked,
			inventory.Outcome{ChangeType: inventory.ChangeReworkBlocked, Severity: inventory.SeverityWarn}},
		{"free blocked", inventory.StatusFree, inventory.StatusBlocked,
			inventory.Outcome{ChangeType: inventory.ChangeStatusChanged, Severity: inventory.SeverityInfo}},
		{"blocked done", inventory.StatusBlocked, inventory.StatusDone,
			inventory.Outcome{ChangeType: inventory.ChangeStatusChanged, Severity: inventory.SeverityInfo}},
	}

	table := DefaultTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.ClassifyTransition(tt.from, tt.to, false)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyTransition_Deterministic(t *testing.T) {
	table := DefaultTable()
	for _, from := range inventory.AllStatuses() {
		for _, to := range inventory.AllStatuses() {
			first, firstOK := table.ClassifyTransition(from, to, true)
			for i := 0; i < 5; i++ {
				again, ok := table.ClassifyTransition(from, to, true)
				assert.Equal(t, firstOK, ok)
				assert.Equal(t, first, again)
			}
		}
	}
}

func TestClassifyTransition_UncoveredPairIsUnclassified(t *testing.T) {
	table := NewTable(nil, DefaultSafeToDisappear(), DefaultRegressionEpsilon)

	got, ok := table.ClassifyTransition(inventory.StatusFree, inventory.StatusDone, false)
	require.True(t, ok)
	assert.Equal(t, inventory.ChangeUnclassified, got.ChangeType)
	assert.Equal(t, inventory.SeverityBlock, got.Severity)
	assert.Len(t, table.Uncovered(), 30)

	got, ok = DefaultTable().ClassifyTransition(inventory.Status(42), inventory.StatusDone, false)
	require.True(t, ok)
	assert.Equal(t, inventory.ChangeUnclassified, got.ChangeType)
}

func TestClassifyTransition_FlagRestrictedRule(t *testing.T) {
	flagged := true
	rules := append([]Rule{{
		Name:    "flagged_completion",
		From:    []inventory.Status{inventory.StatusInTransit},
		To:      []inventory.Status{inventory.StatusDone},
		Flagged: &flagged,
		Outcome: inventory.Outcome{ChangeType: inventory.ChangeStatusChanged, Severity: inventory.SeverityWarn},
	}}, DefaultRules()...)
	table := NewTable(rules, DefaultSafeToDisappear(), DefaultRegressionEpsilon)

	got, _ := table.ClassifyTransition(inventory.StatusInTransit, inventory.StatusDone, true)
	assert.Equal(t, inventory.SeverityWarn, got.Severity)

	got, _ = table.ClassifyTransition(inventory.StatusInTransit, inventory.StatusDone, false)
	assert.Equal(t, inventory.SeverityInfo, got.Severity)
}

func TestClassifyTransition_EliminatedSeverityFollowsProgress(t *testing.T) {
	table := DefaultTable()
	for _, from := range inventory.AllStatuses() {
		if !from.IsActive() {
			continue
		}
		got, ok := table.ClassifyTransition(from, inventory.StatusEliminated, false)
		require.True(t, ok, from.String())
		assert.Equal(t, inventory.ChangeEliminated, got.ChangeType, from.String())

		want := inventory.SeverityWarn
		if from.Progress() >= inventory.StatusInTransit.Progress() {
			want = inventory.SeverityBlock
		}
		assert.Equal(t, want, got.Severity, from.String())
	}

	got, _ := table.ClassifyTransition(inventory.StatusBlocked, inventory.StatusEliminated, false)
	assert.Equal(t, inventory.SeverityBlock, got.Severity)
}

func TestClassifyDisappearance_Partition(t *testing.T) {
	table := DefaultTable()
	for _, prior := range inventory.AllStatuses() {
		got := table.ClassifyDisappearance(prior)
		if prior == inventory.StatusEliminated {
			assert.Equal(t, inventory.ChangeDisappearedAllowed, got.ChangeType)
			assert.Equal(t, inventory.SeverityInfo, got.Severity)
			continue
		}
		assert.Equal(t, inventory.ChangeDisappearedUnexpected, got.ChangeType, prior.String())
		assert.Equal(t, inventory.SeverityBlock, got.Severity)
	}
}

func TestClassifyMeasure(t *testing.T) {
	null := inventory.NullMeasure()
	tests := []struct {
		name      string
		field     inventory.MeasureField
		old, new  inventory.Measure
		wantEvent bool
		want      inventory.Severity
	}{
		{"null to null", inventory.MeasureLaid, null, null, false, 0},
		{"zero stays zero", inventory.MeasureLaid, measure("0"), measure("0.00"), false, 0},
		{"null to zero", inventory.MeasureLaid, null, measure("0"), true, inventory.SeverityWarn},
		{"laid grows", inventory.MeasureLaid, measure("10"), measure("25.5"), true, inventory.SeverityWarn},
		{"laid shrinks within epsilon", inventory.MeasureLaid, measure("10"), measure("9.995"), true, inventory.SeverityWarn},
		{"laid shrinks by epsilon", inventory.MeasureLaid, measure("10"), measure("9.99"), true, inventory.SeverityWarn},
		{"laid shrinks", inventory.MeasureLaid, measure("10"), measure("9.5"), true, inventory.SeverityBlock},
		{"laid lost", inventory.MeasureLaid, measure("10"), null, true, inventory.SeverityBlock},
		{"zero laid lost", inventory.MeasureLaid, measure("0"), null, true, inventory.SeverityWarn},
		{"design shrinks", inventory.MeasureDesign, measure("10"), measure("2"), true, inventory.SeverityWarn},
		{"design lost", inventory.MeasureDesign, measure("10"), null, true, inventory.SeverityWarn},
	}

	table := DefaultTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.ClassifyMeasure(tt.field, tt.old, tt.new)
			require.Equal(t, tt.wantEvent, ok)
			if !ok {
				return
			}
			assert.Equal(t, inventory.ChangeMeasureChanged, got.ChangeType)
			assert.Equal(t, tt.want, got.Severity)
		})
	}
}

func TestWithRegressionEpsilon(t *testing.T) {
	table := DefaultTable().WithRegressionEpsilon(decimal.NewFromInt(1))
	assert.True(t, decimal.NewFromInt(1).Equal(table.RegressionEpsilon()))

	got, ok := table.ClassifyMeasure(inventory.MeasureLaid, measure("10"), measure("9.5"))
	require.True(t, ok)
	assert.Equal(t, inventory.SeverityWarn, got.Severity)

	// the safe set survives the copy
	assert.Equal(t, inventory.ChangeDisappearedAllowed, table.ClassifyDisappearance(inventory.StatusEliminated).ChangeType)

	negative := DefaultTable().WithRegressionEpsilon(decimal.NewFromInt(-3))
	assert.True(t, negative.RegressionEpsilon().IsZero())
}
