package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"cablesync/internal/inventory"
)

const projectionColumns = 9

// UpsertProjection is the first projection phase: every current entity becomes the
// live row of its code and is marked present.
func (s *PostgresStore) UpsertProjection(ctx context.Context, scopeID, importID string, entities []inventory.Entity, seenAt time.Time) (err error) {
	defer func(start time.Time) { s.observe("upsert_projection", start, err) }(time.Now())

	chunk := boundedChunk(s.chunks.projectionWrite, projectionColumns)
	for start := 0; start < len(entities); start += chunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		end := start + chunk
		if end > len(entities) {
			end = len(entities)
		}
		batch := entities[start:end]

		args := make([]interface{}, 0, len(batch)*projectionColumns)
		for _, e := range batch {
			args = append(args, scopeID, e.Code, e.Status.String(), e.MeasureA, e.MeasureB,
				e.FlaggedBySource, importID, seenAt, false)
		}

		query := `
			INSERT INTO current_projection (scope_id, code, status, measure_a, measure_b, flagged,
				last_import_id, last_seen_at, missing_in_latest_import)
			VALUES ` + valuesClause(len(batch), projectionColumns) + `
			ON CONFLICT (scope_id, code) DO UPDATE SET
				status = EXCLUDED.status,
				measure_a = EXCLUDED.measure_a,
				measure_b = EXCLUDED.measure_b,
				flagged = EXCLUDED.flagged,
				last_import_id = EXCLUDED.last_import_id,
				last_seen_at = EXCLUDED.last_seen_at,
				missing_in_latest_import = FALSE
		`
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return storeError(fmt.Sprintf("upsert projection rows %d-%d", start, end-1), err)
		}
	}
	return nil
}

// MarkMissing is the second projection phase: every row of the scope not touched by
// importID is flagged as missing from the latest import.
func (s *PostgresStore) MarkMissing(ctx context.Context, scopeID, importID string) (n int64, err error) {
	defer func(start time.Time) { s.observe("mark_missing", start, err) }(time.Now())

	res, err := s.q.ExecContext(ctx, `
		UPDATE current_projection
		SET missing_in_latest_import = TRUE
		WHERE scope_id = $1 AND last_import_id <> $2 AND missing_in_latest_import = FALSE
	`, scopeID, importID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missing projection rows: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) ListProjection(ctx context.Context, scopeID string, filter ProjectionFilter, page Page) (result []ProjectionRow, err error) {
	defer func(start time.Time) { s.observe("list_projection", start, err) }(time.Now())

	limit, offset := pageBounds(page)
	conditions := []string{"scope_id = $1"}
	args := []interface{}{scopeID}

	if filter.MissingOnly {
		conditions = append(conditions, "missing_in_latest_import")
	}
	if filter.Status != nil {
		args = append(args, filter.Status.String())
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT scope_id, code, status, measure_a, measure_b, flagged, last_import_id, last_seen_at,
			missing_in_latest_import
		FROM current_projection
		WHERE %s
		ORDER BY code
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projection: %w", err)
	}
	defer rows.Close()

	result = make([]ProjectionRow, 0)
	for rows.Next() {
		var (
			row    ProjectionRow
			status string
		)
		if err := rows.Scan(&row.ScopeID, &row.Code, &status, &row.MeasureA, &row.MeasureB,
			&row.FlaggedBySource, &row.LastImportID, &row.LastSeenAt, &row.MissingInLatestImport); err != nil {
			return nil, fmt.Errorf("failed to scan projection row: %w", err)
		}
		parsed, err := inventory.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("projection row %s: %w", row.Code, err)
		}
		row.Status = parsed
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projection: %w", err)
	}
	return result, nil
}

// CountersForScope aggregates the event log per code. The log is the only source of
// truth; nothing is incremented at write time.
func (s *PostgresStore) CountersForScope(ctx context.Context, scopeID string) (counters map[string]Counters, err error) {
	defer func(start time.Time) { s.observe("counters_for_scope", start, err) }(time.Now())

	rework := make([]string, 0, len(inventory.ReworkChangeTypes()))
	for _, ct := range inventory.ReworkChangeTypes() {
		rework = append(rework, string(ct))
	}

	query := `
		SELECT code,
			COUNT(*) FILTER (WHERE change_type = ANY($2)),
			COUNT(*) FILTER (WHERE change_type = $3),
			COUNT(*) FILTER (WHERE change_type = $4)
		FROM change_events
		WHERE scope_id = $1 AND (change_type = ANY($2) OR change_type IN ($3, $4))
		GROUP BY code
	`

	rows, err := s.q.QueryContext(ctx, query, scopeID, pq.Array(rework),
		string(inventory.ChangeEliminated), string(inventory.ChangeReinstated))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate counters: %w", err)
	}
	defer rows.Close()

	counters = make(map[string]Counters)
	for rows.Next() {
		var (
			code string
			c    Counters
		)
		if err := rows.Scan(&code, &c.Rework, &c.Eliminated, &c.Reinstated); err != nil {
			return nil, fmt.Errorf("failed to scan counters: %w", err)
		}
		counters[code] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counters: %w", err)
	}
	return counters, nil
}
