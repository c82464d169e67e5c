package diff

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/classification"
	"cablesync/internal/inventory"
)

func newTestEngine() *Engine {
	n := 0
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return NewEngine(classification.DefaultTable(),
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("evt-%d", n)
		}),
	)
}

func entity(code string, status inventory.Status) inventory.Entity {
	return inventory.Entity{Code: code, Status: status}
}

func state(status inventory.Status) inventory.State {
	return inventory.State{Status: status}
}

func measure(s string) inventory.Measure {
	return inventory.MeasureOf(decimal.RequireFromString(s))
}

type key struct {
	code       string
	changeType inventory.ChangeType
}

func index(events []inventory.ChangeEvent) map[key]inventory.ChangeEvent {
	out := make(map[key]inventory.ChangeEvent, len(events))
	for _, e := range events {
		out[key{e.Code, e.ChangeType}] = e
	}
	return out
}

func TestDiff_FirstImport(t *testing.T) {
	engine := newTestEngine()
	current := []inventory.Entity{
		entity("A", inventory.StatusFree),
		entity("B", inventory.StatusDone),
		{Code: "C", Status: inventory.StatusEliminated, FlaggedBySource: true},
	}

	events := engine.Diff("S", "imp-1", current, nil)

	newCount := 0
	for _, e := range events {
		assert.Nil(t, e.FromImportID)
		assert.Equal(t, "imp-1", e.ToImportID)
		assert.Equal(t, "S", e.ScopeID)
		assert.NotContains(t, []inventory.ChangeType{
			inventory.ChangeDisappearedAllowed,
			inventory.ChangeDisappearedUnexpected,
		}, e.ChangeType)
		if e.ChangeType == inventory.ChangeNewEntity {
			newCount++
			assert.Equal(t, inventory.SeverityInfo, e.Severity)
		}
	}
	assert.Equal(t, len(current), newCount)

	byKey := index(events)
	flag, ok := byKey[key{"C", inventory.ChangeFlaggedBySource}]
	require.True(t, ok)
	assert.Equal(t, inventory.SeverityWarn, flag.Severity)
	assert.Len(t, events, 4)
}

func TestDiff_FirstImportDiffersFromEmptyPrevious(t *testing.T) {
	engine := newTestEngine()
	current := []inventory.Entity{entity("A", inventory.StatusFree)}

	first := engine.Diff("S", "imp-2", current, nil)
	empty := engine.Diff("S", "imp-2", current, &Previous{ImportID: "imp-1", States: map[string]inventory.State{}})

	require.Len(t, first, 1)
	require.Len(t, empty, 1)
	assert.Nil(t, first[0].FromImportID)
	require.NotNil(t, empty[0].FromImportID)
	assert.Equal(t, "imp-1", *empty[0].FromImportID)
}

func TestDiff_EndToEndScenario(t *testing.T) {
	engine := newTestEngine()

	first := engine.Diff("S", "imp-1", []inventory.Entity{
		entity("A", inventory.StatusFree),
		entity("B", inventory.StatusDone),
	}, nil)
	require.Len(t, first, 2)

	events := engine.Diff("S", "imp-2", []inventory.Entity{
		entity("A", inventory.StatusBlocked),
		entity("C", inventory.StatusFree),
	}, &Previous{
		ImportID: "imp-1",
		States: map[string]inventory.State{
			"A": state(inventory.StatusFree),
			"B": state(inventory.StatusDone),
		},
	})

	require.Len(t, events, 3)

	assert.Equal(t, "A", events[0].Code)
	assert.Equal(t, inventory.ChangeStatusChanged, events[0].ChangeType)
	assert.Equal(t, inventory.SeverityInfo, events[0].Severity)
	require.NotNil(t, events[0].OldValue)
	assert.Equal(t, "Free", *events[0].OldValue)
	assert.Equal(t, "Blocked", *events[0].NewValue)

	assert.Equal(t, "C", events[1].Code)
	assert.Equal(t, inventory.ChangeNewEntity, events[1].ChangeType)

	assert.Equal(t, "B", events[2].Code)
	assert.Equal(t, inventory.ChangeDisappearedUnexpected, events[2].ChangeType)
	assert.Equal(t, inventory.SeverityBlock, events[2].Severity)
	assert.Nil(t, events[2].NewValue)

	for _, e := range events {
		require.NotNil(t, e.FromImportID)
		assert.Equal(t, "imp-1", *e.FromImportID)
		assert.Equal(t, "imp-2", e.ToImportID)
	}
}

func TestDiff_DisappearancePartition(t *testing.T) {
	engine := newTestEngine()
	prev := map[string]inventory.State{}
	for i, s := range inventory.AllStatuses() {
		prev[fmt.Sprintf("G-%d", i)] = state(s)
	}
	prev["KEEP"] = state(inventory.StatusFree)

	events := engine.Diff("S", "imp-2", []inventory.Entity{entity("KEEP", inventory.StatusFree)},
		&Previous{ImportID: "imp-1", States: prev})

	require.Len(t, events, len(inventory.AllStatuses()))
	seen := map[string]int{}
	var codes []string
	for _, e := range events {
		seen[e.Code]++
		codes = append(codes, e.Code)
		switch e.ChangeType {
		case inventory.ChangeDisappearedAllowed:
			assert.Equal(t, "Eliminated", *e.OldValue)
		case inventory.ChangeDisappearedUnexpected:
			assert.NotEqual(t, "Eliminated", *e.OldValue)
		default:
			t.Fatalf("unexpected change type %s", e.ChangeType)
		}
	}
	for code, n := range seen {
		assert.Equal(t, 1, n, code)
	}
	assert.IsIncreasing(t, codes)
}

func TestDiff_FlaggedCoOccursWithTransition(t *testing.T) {
	engine := newTestEngine()
	events := engine.Diff("S", "imp-2", []inventory.Entity{
		{Code: "A", Status: inventory.StatusFree, FlaggedBySource: true},
		{Code: "B", Status: inventory.StatusDone, FlaggedBySource: true},
	}, &Previous{ImportID: "imp-1", States: map[string]inventory.State{
		"A": state(inventory.StatusDone),
		"B": {Status: inventory.StatusDone, FlaggedBySource: true},
	}})

	byKey := index(events)
	_, ok := byKey[key{"A", inventory.ChangeFlaggedBySource}]
	assert.True(t, ok)
	rework, ok := byKey[key{"A", inventory.ChangeReworkReopened}]
	require.True(t, ok)
	assert.Equal(t, inventory.SeverityWarn, rework.Severity)

	// flag is a per-import observation, so it is reported again
	_, ok = byKey[key{"B", inventory.ChangeFlaggedBySource}]
	assert.True(t, ok)
	assert.Len(t, events, 3)
}

func TestDiff_Measures(t *testing.T) {
	engine := newTestEngine()
	prev := map[string]inventory.State{
		"NULL-ZERO": {Status: inventory.StatusFree},
		"ZERO-ZERO": {Status: inventory.StatusFree, MeasureA: measure("0"), MeasureB: measure("0")},
		"REGRESS":   {Status: inventory.StatusDone, MeasureB: measure("120")},
		"GROW":      {Status: inventory.StatusInTransit, MeasureA: measure("100"), MeasureB: measure("40")},
	}
	events := engine.Diff("S", "imp-2", []inventory.Entity{
		{Code: "NULL-ZERO", Status: inventory.StatusFree, MeasureB: measure("0")},
		{Code: "ZERO-ZERO", Status: inventory.StatusFree, MeasureA: measure("0.0"), MeasureB: measure("0")},
		{Code: "REGRESS", Status: inventory.StatusDone, MeasureB: measure("80")},
		{Code: "GROW", Status: inventory.StatusInTransit, MeasureA: measure("100"), MeasureB: measure("60")},
	}, &Previous{ImportID: "imp-1", States: prev})

	require.Len(t, events, 3)

	assert.Equal(t, "NULL-ZERO", events[0].Code)
	assert.Equal(t, inventory.ChangeMeasureChanged, events[0].ChangeType)
	assert.Equal(t, string(inventory.MeasureLaid), events[0].Field)
	assert.Nil(t, events[0].OldValue)
	assert.Equal(t, "0", *events[0].NewValue)

	assert.Equal(t, "REGRESS", events[1].Code)
	assert.Equal(t, inventory.SeverityBlock, events[1].Severity)
	assert.Equal(t, "120", *events[1].OldValue)
	assert.Equal(t, "80", *events[1].NewValue)

	assert.Equal(t, "GROW", events[2].Code)
	assert.Equal(t, inventory.SeverityWarn, events[2].Severity)
}

func TestDiff_NoChangesNoEvents(t *testing.T) {
	engine := newTestEngine()
	events := engine.Diff("S", "imp-2", []inventory.Entity{
		{Code: "A", Status: inventory.StatusDone, MeasureA: measure("5")},
	}, &Previous{ImportID: "imp-1", States: map[string]inventory.State{
		"A": {Status: inventory.StatusDone, MeasureA: measure("5.00")},
	}})
	assert.Empty(t, events)
}

func TestDiff_EventsCarryClockAndIDs(t *testing.T) {
	engine := newTestEngine()
	events := engine.Diff("S", "imp-1", []inventory.Entity{
		entity("A", inventory.StatusFree),
		entity("B", inventory.StatusFree),
	}, nil)

	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "evt-2", events[1].ID)
	assert.Equal(t, events[0].CreatedAt, events[1].CreatedAt)
}
