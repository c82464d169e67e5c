package importer

import (
	"context"
	"sort"
	"sync"
	"time"

	"cablesync/internal/inventory"
	pkgerrors "cablesync/pkg/errors"
)

// memoryStore is an in-memory Repository with transactional ledger writes and
// per-method fault injection.
type memoryStore struct {
	mu         sync.Mutex
	imports    map[string]*Import
	order      []string
	pointers   map[string]string
	snapshots  map[string][]inventory.Entity
	events     []inventory.ChangeEvent
	projection map[string]map[string]ProjectionRow
	summaries  map[string]*Summary
	failures   map[string]error
	calls      map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		imports:    make(map[string]*Import),
		pointers:   make(map[string]string),
		snapshots:  make(map[string][]inventory.Entity),
		projection: make(map[string]map[string]ProjectionRow),
		summaries:  make(map[string]*Summary),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

func (m *memoryStore) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

func (m *memoryStore) hit(method string) error {
	m.calls[method]++
	return m.failures[method]
}

func (m *memoryStore) CreateImport(_ context.Context, imp *Import) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CreateImport"); err != nil {
		return err
	}
	now := time.Now().UTC()
	imp.CreatedAt = now
	imp.UpdatedAt = now
	stored := *imp
	m.imports[imp.ID] = &stored
	m.order = append(m.order, imp.ID)
	return nil
}

func (m *memoryStore) GetImport(_ context.Context, id string) (*Import, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.imports[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "import not found")
	}
	out := *imp
	return &out, nil
}

func (m *memoryStore) ListImports(_ context.Context, scopeID string, _ Page) ([]Import, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Import
	for i := len(m.order) - 1; i >= 0; i-- {
		if imp := m.imports[m.order[i]]; imp.ScopeID == scopeID {
			out = append(out, *imp)
		}
	}
	return out, nil
}

func (m *memoryStore) PreviousImportID(_ context.Context, scopeID string) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("PreviousImportID"); err != nil {
		return nil, err
	}
	if id, ok := m.pointers[scopeID]; ok {
		return &id, nil
	}
	for i := len(m.order) - 1; i >= 0; i-- {
		imp := m.imports[m.order[i]]
		if imp.ScopeID == scopeID && imp.Status == ImportCommitted {
			id := imp.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) MarkFailed(_ context.Context, importID, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.imports[importID]
	if !ok || imp.Status != ImportPending {
		return nil
	}
	imp.Status = ImportFailed
	imp.FailedPhase = &phase
	return nil
}

func (m *memoryStore) WriteSnapshot(_ context.Context, importID string, entities []inventory.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("WriteSnapshot"); err != nil {
		return err
	}
	m.snapshots[importID] = append([]inventory.Entity(nil), entities...)
	return nil
}

func (m *memoryStore) LoadSnapshot(_ context.Context, importID string) (map[string]inventory.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("LoadSnapshot"); err != nil {
		return nil, err
	}
	states := make(map[string]inventory.State, len(m.snapshots[importID]))
	for _, e := range m.snapshots[importID] {
		states[e.Code] = stateOf(e)
	}
	return states, nil
}

func (m *memoryStore) ListSnapshot(_ context.Context, importID string, _ Page) ([]SnapshotRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []SnapshotRow
	for _, e := range m.snapshots[importID] {
		rows = append(rows, SnapshotRow{
			ImportID:        importID,
			Code:            e.Code,
			Status:          e.Status,
			MeasureA:        e.MeasureA,
			MeasureB:        e.MeasureB,
			FlaggedBySource: e.FlaggedBySource,
			Payload:         e.Payload,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func (m *memoryStore) ListEvents(_ context.Context, importID string, filter EventFilter, _ Page) ([]inventory.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.ChangeEvent
	for _, e := range m.events {
		if e.ToImportID != importID {
			continue
		}
		if filter.ChangeType != nil && e.ChangeType != *filter.ChangeType {
			continue
		}
		if filter.Severity != nil && e.Severity != *filter.Severity {
			continue
		}
		if filter.Code != "" && e.Code != filter.Code {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryStore) EventOutcomes(_ context.Context, importID string) ([]inventory.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.Outcome
	for _, e := range m.events {
		if e.ToImportID == importID {
			out = append(out, inventory.Outcome{ChangeType: e.ChangeType, Severity: e.Severity})
		}
	}
	return out, nil
}

func (m *memoryStore) ListProjection(_ context.Context, scopeID string, filter ProjectionFilter, _ Page) ([]ProjectionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []ProjectionRow
	for _, row := range m.projection[scopeID] {
		if filter.MissingOnly && !row.MissingInLatestImport {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func (m *memoryStore) CountersForScope(_ context.Context, scopeID string) (map[string]Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("CountersForScope"); err != nil {
		return nil, err
	}
	counters := make(map[string]Counters)
	for _, e := range m.events {
		if e.ScopeID != scopeID {
			continue
		}
		c := counters[e.Code]
		switch {
		case e.ChangeType.IsRework():
			c.Rework++
		case e.ChangeType == inventory.ChangeEliminated:
			c.Eliminated++
		case e.ChangeType == inventory.ChangeReinstated:
			c.Reinstated++
		default:
			continue
		}
		counters[e.Code] = c
	}
	return counters, nil
}

func (m *memoryStore) UpsertSummary(_ context.Context, summary *Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpsertSummary"); err != nil {
		return err
	}
	stored := *summary
	m.summaries[summary.ImportID] = &stored
	return nil
}

func (m *memoryStore) GetSummary(_ context.Context, importID string) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary, ok := m.summaries[importID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "summary not found")
	}
	out := *summary
	return &out, nil
}

type memorySavepoint struct {
	events     []inventory.ChangeEvent
	pointers   map[string]string
	statuses   map[string]ImportStatus
	projection map[string]map[string]ProjectionRow
}

func (m *memoryStore) savepoint() memorySavepoint {
	sp := memorySavepoint{
		events:     append([]inventory.ChangeEvent(nil), m.events...),
		pointers:   make(map[string]string, len(m.pointers)),
		statuses:   make(map[string]ImportStatus, len(m.imports)),
		projection: make(map[string]map[string]ProjectionRow, len(m.projection)),
	}
	for k, v := range m.pointers {
		sp.pointers[k] = v
	}
	for id, imp := range m.imports {
		sp.statuses[id] = imp.Status
	}
	for scope, rows := range m.projection {
		copied := make(map[string]ProjectionRow, len(rows))
		for code, row := range rows {
			copied[code] = row
		}
		sp.projection[scope] = copied
	}
	return sp
}

func (m *memoryStore) restore(sp memorySavepoint) {
	m.events = sp.events
	m.pointers = sp.pointers
	m.projection = sp.projection
	for id, status := range sp.statuses {
		m.imports[id].Status = status
	}
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(tx LedgerWriter) error) error {
	m.mu.Lock()
	if err := m.hit("Begin"); err != nil {
		m.mu.Unlock()
		return err
	}
	sp := m.savepoint()
	m.mu.Unlock()

	err := fn(&memoryTx{store: m})
	if err == nil {
		m.mu.Lock()
		err = m.hit("Commit")
		m.mu.Unlock()
	}
	if err != nil {
		m.mu.Lock()
		m.restore(sp)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) WriteEvents(_ context.Context, events []inventory.ChangeEvent) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("WriteEvents"); err != nil {
		return err
	}
	m.events = append(m.events, events...)
	return nil
}

func (t *memoryTx) UpsertProjection(_ context.Context, scopeID, importID string, entities []inventory.Entity, seenAt time.Time) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("UpsertProjection"); err != nil {
		return err
	}
	rows, ok := m.projection[scopeID]
	if !ok {
		rows = make(map[string]ProjectionRow)
		m.projection[scopeID] = rows
	}
	for _, e := range entities {
		rows[e.Code] = ProjectionRow{
			ScopeID:         scopeID,
			Code:            e.Code,
			Status:          e.Status,
			MeasureA:        e.MeasureA,
			MeasureB:        e.MeasureB,
			FlaggedBySource: e.FlaggedBySource,
			LastImportID:    importID,
			LastSeenAt:      seenAt,
		}
	}
	return nil
}

func (t *memoryTx) MarkMissing(_ context.Context, scopeID, importID string) (int64, error) {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, row := range m.projection[scopeID] {
		if row.LastImportID != importID && !row.MissingInLatestImport {
			row.MissingInLatestImport = true
			m.projection[scopeID][code] = row
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) AdvancePointer(_ context.Context, scopeID string, expected *string, next string) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.hit("AdvancePointer"); err != nil {
		return err
	}
	current, ok := m.pointers[scopeID]
	switch {
	case !ok && expected == nil, ok && expected != nil && current == *expected:
		m.pointers[scopeID] = next
		return nil
	case !ok && expected != nil:
		// a scope without a pointer row accepts any expected value on first write
		m.pointers[scopeID] = next
		return nil
	}
	return pkgerrors.ErrConflict.WithDetail("scope_id", scopeID)
}

func (t *memoryTx) MarkCommitted(_ context.Context, importID string) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.imports[importID]
	if !ok || imp.Status != ImportPending {
		return pkgerrors.ErrConflict.WithDetail("import_id", importID)
	}
	imp.Status = ImportCommitted
	return nil
}

func stateOf(e inventory.Entity) inventory.State {
	return inventory.State{
		Status:          e.Status,
		MeasureA:        e.MeasureA,
		MeasureB:        e.MeasureB,
		FlaggedBySource: e.FlaggedBySource,
	}
}
