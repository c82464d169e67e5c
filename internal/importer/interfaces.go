package importer

import (
	"context"
	"time"

	"cablesync/internal/inventory"
	"cablesync/internal/normalizer"
)

// Repository is the durable store behind import runs and their read models.
type Repository interface {
	CreateImport(ctx context.Context, imp *Import) error
	GetImport(ctx context.Context, id string) (*Import, error)
	ListImports(ctx context.Context, scopeID string, page Page) ([]Import, error)
	// PreviousImportID returns the scope pointer, or the latest committed import when
	// the scope has no pointer yet, or nil for a first import.
	PreviousImportID(ctx context.Context, scopeID string) (*string, error)
	MarkFailed(ctx context.Context, importID, phase string) error

	WriteSnapshot(ctx context.Context, importID string, entities []inventory.Entity) error
	LoadSnapshot(ctx context.Context, importID string) (map[string]inventory.State, error)
	ListSnapshot(ctx context.Context, importID string, page Page) ([]SnapshotRow, error)

	ListEvents(ctx context.Context, importID string, filter EventFilter, page Page) ([]inventory.ChangeEvent, error)
	EventOutcomes(ctx context.Context, importID string) ([]inventory.Outcome, error)

	ListProjection(ctx context.Context, scopeID string, filter ProjectionFilter, page Page) ([]ProjectionRow, error)
	CountersForScope(ctx context.Context, scopeID string) (map[string]Counters, error)

	UpsertSummary(ctx context.Context, summary *Summary) error
	GetSummary(ctx context.Context, importID string) (*Summary, error)

	// WithinTx runs fn in one transaction; any error rolls every write back.
	WithinTx(ctx context.Context, fn func(tx LedgerWriter) error) error
}

// LedgerWriter holds the writes that must commit together with the scope pointer.
type LedgerWriter interface {
	WriteEvents(ctx context.Context, events []inventory.ChangeEvent) error
	UpsertProjection(ctx context.Context, scopeID, importID string, entities []inventory.Entity, seenAt time.Time) error
	MarkMissing(ctx context.Context, scopeID, importID string) (int64, error)
	AdvancePointer(ctx context.Context, scopeID string, expected *string, next string) error
	MarkCommitted(ctx context.Context, importID string) error
}

// CounterLookup is one cache read. On a miss, Generation is the scope's
// invalidation count, to be passed back to Set.
type CounterLookup struct {
	Counters   map[string]Counters
	Hit        bool
	Generation int64
}

// CounterCache is best-effort: callers log its errors and fall back to the repository.
// Set stores nothing and reports false once the scope was invalidated after the
// lookup that returned generation.
type CounterCache interface {
	Get(ctx context.Context, scopeID string) (CounterLookup, error)
	Set(ctx context.Context, scopeID string, generation int64, counters map[string]Counters) (bool, error)
	Invalidate(ctx context.Context, scopeID string) error
}

type Notifier interface {
	ImportFinished(ctx context.Context, req RunRequest, result *RunResult, runErr error) error
}

type VocabularyProvider interface {
	Vocabulary(ctx context.Context, scopeID string) (*normalizer.Vocabulary, error)
}

// RowParser turns source bytes into tabular rows. Detect names the format used when
// a request does not specify one.
type RowParser interface {
	Detect(data []byte) string
	Parse(ctx context.Context, format string, data []byte) ([]normalizer.RawRow, error)
}

type SourceResolver interface {
	Resolve(ctx context.Context, locator string) ([]byte, error)
}
