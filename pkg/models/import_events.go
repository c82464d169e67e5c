package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventTypeImportRequested = "import_requested"
	EventTypeImportCompleted = "import_completed"
)

const (
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// ImportRequested asks a worker to run one import. Exactly one of StorageLocator
// and SourceBase64 is set.
type ImportRequested struct {
	DatasetScopeID string `json:"dataset_scope_id"`
	StorageLocator string `json:"storage_locator,omitempty"`
	SourceBase64   string `json:"source_base64,omitempty"`
	Format         string `json:"format,omitempty"`
	Note           string `json:"note,omitempty"`
}

type ImportCompleted struct {
	RequestID          string         `json:"request_id,omitempty"`
	DatasetScopeID     string         `json:"dataset_scope_id"`
	Status             string         `json:"status"`
	ImportID           string         `json:"import_id,omitempty"`
	PreviousImportID   *string        `json:"previous_import_id,omitempty"`
	CountsByChangeType map[string]int `json:"counts_by_change_type,omitempty"`
	CountsBySeverity   map[string]int `json:"counts_by_severity,omitempty"`
	TotalEntityCount   int            `json:"total_entity_count"`
	TotalEvents        int            `json:"total_events"`
	FailedPhase        string         `json:"failed_phase,omitempty"`
	Error              string         `json:"error,omitempty"`
	CompletedAt        time.Time      `json:"completed_at"`
}

// ToPayload converts a typed event into an envelope payload.
func ToPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// FromPayload decodes an envelope payload into a typed event.
func FromPayload(payload map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

func ValidateImportRequested(req ImportRequested) error {
	if req.DatasetScopeID == "" {
		return &ValidationError{
			Field:   "dataset_scope_id",
			Message: "dataset scope is required",
		}
	}

	if (req.StorageLocator == "") == (req.SourceBase64 == "") {
		return &ValidationError{
			Field:   "storage_locator",
			Message: "exactly one of storage_locator and source_base64 is required",
		}
	}

	return nil
}
