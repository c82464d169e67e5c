package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "cablesync/pkg/errors"
)

// UpsertSummary writes the summary keyed by import; writing the same summary twice
// leaves an identical row.
func (s *PostgresStore) UpsertSummary(ctx context.Context, summary *Summary) (err error) {
	defer func(start time.Time) { s.observe("upsert_summary", start, err) }(time.Now())

	byType, err := json.Marshal(summary.ByChangeType)
	if err != nil {
		return fmt.Errorf("failed to marshal change type counts: %w", err)
	}
	bySeverity, err := json.Marshal(summary.BySeverity)
	if err != nil {
		return fmt.Errorf("failed to marshal severity counts: %w", err)
	}

	query := `
		INSERT INTO import_summaries (import_id, scope_id, previous_import_id, by_change_type, by_severity,
			total_events, total_entities)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (import_id) DO UPDATE SET
			scope_id = EXCLUDED.scope_id,
			previous_import_id = EXCLUDED.previous_import_id,
			by_change_type = EXCLUDED.by_change_type,
			by_severity = EXCLUDED.by_severity,
			total_events = EXCLUDED.total_events,
			total_entities = EXCLUDED.total_entities
	`

	_, err = s.q.ExecContext(ctx, query,
		summary.ImportID, summary.ScopeID, nullableString(summary.PreviousImportID),
		string(byType), string(bySeverity), summary.TotalEvents, summary.TotalEntities,
	)
	if err != nil {
		return storeError("upsert import summary", err)
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, importID string) (summary *Summary, err error) {
	defer func(start time.Time) { s.observe("get_summary", start, err) }(time.Now())

	var (
		result     Summary
		previous   sql.NullString
		byType     []byte
		bySeverity []byte
	)
	err = s.q.QueryRowContext(ctx, `
		SELECT import_id, scope_id, previous_import_id, by_change_type, by_severity, total_events, total_entities
		FROM import_summaries
		WHERE import_id = $1
	`, importID).Scan(&result.ImportID, &result.ScopeID, &previous, &byType, &bySeverity,
		&result.TotalEvents, &result.TotalEntities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithCause(err).WithDetail("message", fmt.Sprintf("summary for import %s not found", importID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import summary: %w", err)
	}

	result.PreviousImportID = stringPtrFromNull(previous)
	if err := json.Unmarshal(byType, &result.ByChangeType); err != nil {
		return nil, fmt.Errorf("failed to decode change type counts: %w", err)
	}
	if err := json.Unmarshal(bySeverity, &result.BySeverity); err != nil {
		return nil, fmt.Errorf("failed to decode severity counts: %w", err)
	}
	return &result, nil
}
