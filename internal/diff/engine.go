// Package diff compares the current snapshot of a scope against the previous one and
// produces the classified change events for the run.
package diff

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"cablesync/internal/classification"
	"cablesync/internal/inventory"
)

const (
	FieldStatus          = "status"
	FieldFlaggedBySource = "flagged_by_source"
)

// Previous is the fully materialized last-known state of every code of the previous import.
type Previous struct {
	ImportID string
	States   map[string]inventory.State
}

type Engine struct {
	table *classification.Table
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func NewEngine(table *classification.Table, opts ...Option) *Engine {
	if table == nil {
		table = classification.DefaultTable()
	}
	e := &Engine{
		table: table,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diff returns events in current-entity order followed by disappearances sorted by code.
// A nil previous means the first import of the scope: everything is NEW_ENTITY and the
// disappearance pass does not run.
func (e *Engine) Diff(scopeID, toImportID string, current []inventory.Entity, previous *Previous) []inventory.ChangeEvent {
	run := &runState{
		engine:     e,
		scopeID:    scopeID,
		toImportID: toImportID,
		createdAt:  e.now(),
		events:     make([]inventory.ChangeEvent, 0, len(current)),
	}

	if previous == nil {
		for _, entity := range current {
			run.newEntity(entity)
			run.flagged(entity)
		}
		return run.events
	}

	run.fromImportID = stringPtr(previous.ImportID)
	seen := make(map[string]bool, len(current))
	for _, entity := range current {
		seen[entity.Code] = true

		prior, ok := previous.States[entity.Code]
		if !ok {
			run.newEntity(entity)
			run.flagged(entity)
			continue
		}

		run.flagged(entity)
		run.transition(entity, prior)
		for _, field := range inventory.AllMeasureFields() {
			run.measure(entity, field, prior.Measure(field), entity.Measure(field))
		}
	}

	gone := make([]string, 0)
	for code := range previous.States {
		if !seen[code] {
			gone = append(gone, code)
		}
	}
	sort.Strings(gone)
	for _, code := range gone {
		run.disappeared(code, previous.States[code])
	}

	return run.events
}

type runState struct {
	engine       *Engine
	scopeID      string
	fromImportID *string
	toImportID   string
	createdAt    time.Time
	events       []inventory.ChangeEvent
}

func (r *runState) emit(code string, outcome inventory.Outcome, field string, oldValue, newValue *string, payload map[string]string) {
	r.events = append(r.events, inventory.ChangeEvent{
		ID:           r.engine.newID(),
		ScopeID:      r.scopeID,
		FromImportID: r.fromImportID,
		ToImportID:   r.toImportID,
		Code:         code,
		ChangeType:   outcome.ChangeType,
		Severity:     outcome.Severity,
		Field:        field,
		OldValue:     oldValue,
		NewValue:     newValue,
		Payload:      payload,
		CreatedAt:    r.createdAt,
	})
}

func (r *runState) newEntity(entity inventory.Entity) {
	r.emit(entity.Code, inventory.Outcome{
		ChangeType: inventory.ChangeNewEntity,
		Severity:   inventory.SeverityInfo,
	}, FieldStatus, nil, stringPtr(entity.Status.String()), entity.Payload)
}

func (r *runState) flagged(entity inventory.Entity) {
	if !entity.FlaggedBySource {
		return
	}
	r.emit(entity.Code, inventory.Outcome{
		ChangeType: inventory.ChangeFlaggedBySource,
		Severity:   inventory.SeverityWarn,
	}, FieldFlaggedBySource, nil, stringPtr("true"), entity.Payload)
}

func (r *runState) transition(entity inventory.Entity, prior inventory.State) {
	outcome, ok := r.engine.table.ClassifyTransition(prior.Status, entity.Status, entity.FlaggedBySource)
	if !ok {
		return
	}
	r.emit(entity.Code, outcome, FieldStatus,
		stringPtr(prior.Status.String()), stringPtr(entity.Status.String()), entity.Payload)
}

func (r *runState) measure(entity inventory.Entity, field inventory.MeasureField, oldValue, newValue inventory.Measure) {
	outcome, ok := r.engine.table.ClassifyMeasure(field, oldValue, newValue)
	if !ok {
		return
	}
	r.emit(entity.Code, outcome, string(field), measurePtr(oldValue), measurePtr(newValue), entity.Payload)
}

func (r *runState) disappeared(code string, prior inventory.State) {
	outcome := r.engine.table.ClassifyDisappearance(prior.Status)
	r.emit(code, outcome, FieldStatus, stringPtr(prior.Status.String()), nil, nil)
}

func stringPtr(s string) *string {
	return &s
}

func measurePtr(m inventory.Measure) *string {
	if !m.Valid {
		return nil
	}
	return stringPtr(inventory.FormatMeasure(m))
}
