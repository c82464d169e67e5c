package importer

import (
	"time"

	"cablesync/internal/inventory"
	"cablesync/internal/normalizer"
)

type ImportStatus string

const (
	// ImportPending is set when the import row is created, before its ledger is committed.
	ImportPending ImportStatus = "pending"
	// ImportCommitted means events and projection were written and the scope pointer moved.
	ImportCommitted ImportStatus = "committed"
	ImportFailed    ImportStatus = "failed"
)

type Import struct {
	ID                 string           `json:"id"`
	ScopeID            string           `json:"scope_id"`
	PreviousImportID   *string          `json:"previous_import_id"`
	Checksum           string           `json:"checksum"`
	Note               string           `json:"note,omitempty"`
	Format             string           `json:"format"`
	EntityCount        int              `json:"entity_count"`
	Status             ImportStatus     `json:"status" enums:"pending,committed,failed"`
	FailedPhase        *string          `json:"failed_phase,omitempty"`
	NormalizationStats normalizer.Stats `json:"normalization_stats"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type SnapshotRow struct {
	ImportID        string            `json:"import_id"`
	Code            string            `json:"code"`
	Status          inventory.Status  `json:"status" swaggertype:"string" enums:"Free,Reserved,InTransit,Blocked,Done,Eliminated"`
	MeasureA        inventory.Measure `json:"measure_a" swaggertype:"string" example:"120.5"`
	MeasureB        inventory.Measure `json:"measure_b" swaggertype:"string" example:"120.5"`
	FlaggedBySource bool              `json:"flagged_by_source"`
	Payload         map[string]string `json:"payload,omitempty"`
}

// Counters are read-time aggregations over the change event log for one code.
type Counters struct {
	Rework     int `json:"rework"`
	Eliminated int `json:"eliminated"`
	Reinstated int `json:"reinstated"`
}

type ProjectionRow struct {
	ScopeID               string            `json:"scope_id"`
	Code                  string            `json:"code"`
	Status                inventory.Status  `json:"status" swaggertype:"string" enums:"Free,Reserved,InTransit,Blocked,Done,Eliminated"`
	MeasureA              inventory.Measure `json:"measure_a" swaggertype:"string" example:"120.5"`
	MeasureB              inventory.Measure `json:"measure_b" swaggertype:"string" example:"120.5"`
	FlaggedBySource       bool              `json:"flagged_by_source"`
	LastImportID          string            `json:"last_import_id"`
	LastSeenAt            time.Time         `json:"last_seen_at"`
	MissingInLatestImport bool              `json:"missing_in_latest_import"`
	Counters              Counters          `json:"counters"`
}

// Summary holds every known change type and severity, zero-filled.
type Summary struct {
	ImportID         string         `json:"import_id"`
	ScopeID          string         `json:"scope_id"`
	PreviousImportID *string        `json:"previous_import_id"`
	ByChangeType     map[string]int `json:"counts_by_change_type"`
	BySeverity       map[string]int `json:"counts_by_severity"`
	TotalEvents      int            `json:"total_events"`
	TotalEntities    int            `json:"total_entity_count"`
}

type EventFilter struct {
	ChangeType *inventory.ChangeType
	Severity   *inventory.Severity
	Code       string
}

type ProjectionFilter struct {
	MissingOnly bool
	Status      *inventory.Status
}

type Page struct {
	Limit  int
	Offset int
}

// RunRequest starts one import. Exactly one of Source and Locator is set.
type RunRequest struct {
	ScopeID   string
	Source    []byte
	Locator   string
	Format    string
	Note      string
	RequestID string
}

type RunResult struct {
	ImportID           string           `json:"import_id"`
	PreviousImportID   *string          `json:"previous_import_id"`
	Checksum           string           `json:"checksum"`
	CountsByChangeType map[string]int   `json:"counts_by_change_type"`
	CountsBySeverity   map[string]int   `json:"counts_by_severity"`
	TotalEntityCount   int              `json:"total_entity_count"`
	TotalEvents        int              `json:"total_events"`
	Normalization      normalizer.Stats `json:"normalization"`
}
