package importer

import (
	"context"
	"fmt"
	"time"

	"cablesync/internal/inventory"
)

const snapshotColumns = 7

// WriteSnapshot inserts one immutable row per entity in multi-row chunks.
func (s *PostgresStore) WriteSnapshot(ctx context.Context, importID string, entities []inventory.Entity) (err error) {
	defer func(start time.Time) { s.observe("write_snapshot", start, err) }(time.Now())

	chunk := boundedChunk(s.chunks.snapshotWrite, snapshotColumns)
	for start := 0; start < len(entities); start += chunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		end := start + chunk
		if end > len(entities) {
			end = len(entities)
		}
		batch := entities[start:end]

		args := make([]interface{}, 0, len(batch)*snapshotColumns)
		for _, e := range batch {
			payload, err := jsonOrNull(e.Payload)
			if err != nil {
				return err
			}
			args = append(args, importID, e.Code, e.Status.String(), e.MeasureA, e.MeasureB, e.FlaggedBySource, payload)
		}

		query := `INSERT INTO snapshot_rows (import_id, code, status, measure_a, measure_b, flagged, payload) VALUES ` +
			valuesClause(len(batch), snapshotColumns)
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return storeError(fmt.Sprintf("write snapshot rows %d-%d", start, end-1), err)
		}
	}
	return nil
}

// LoadSnapshot materializes a stored snapshot into code -> state, reading it in
// keyset pages ordered by code.
func (s *PostgresStore) LoadSnapshot(ctx context.Context, importID string) (states map[string]inventory.State, err error) {
	defer func(start time.Time) { s.observe("load_snapshot", start, err) }(time.Now())

	query := `
		SELECT code, status, measure_a, measure_b, flagged
		FROM snapshot_rows
		WHERE import_id = $1 AND code > $2
		ORDER BY code
		LIMIT $3
	`

	pageSize := s.chunks.snapshotRead
	states = make(map[string]inventory.State)
	last := ""
	for {
		n, lastCode, err := s.loadSnapshotPage(ctx, query, importID, last, pageSize, states)
		if err != nil {
			return nil, err
		}
		if n < pageSize {
			return states, nil
		}
		last = lastCode
	}
}

func (s *PostgresStore) loadSnapshotPage(ctx context.Context, query, importID, after string, pageSize int, into map[string]inventory.State) (int, string, error) {
	rows, err := s.q.QueryContext(ctx, query, importID, after, pageSize)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read snapshot page after %q: %w", after, err)
	}
	defer rows.Close()

	n := 0
	last := after
	for rows.Next() {
		var (
			code   string
			status string
			state  inventory.State
		)
		if err := rows.Scan(&code, &status, &state.MeasureA, &state.MeasureB, &state.FlaggedBySource); err != nil {
			return 0, "", fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		parsed, err := inventory.ParseStatus(status)
		if err != nil {
			return 0, "", fmt.Errorf("snapshot row %s: %w", code, err)
		}
		state.Status = parsed
		into[code] = state
		last = code
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, "", fmt.Errorf("failed to iterate snapshot page: %w", err)
	}
	return n, last, nil
}

func (s *PostgresStore) ListSnapshot(ctx context.Context, importID string, page Page) (result []SnapshotRow, err error) {
	defer func(start time.Time) { s.observe("list_snapshot", start, err) }(time.Now())

	limit, offset := pageBounds(page)
	query := `
		SELECT code, status, measure_a, measure_b, flagged, payload
		FROM snapshot_rows
		WHERE import_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3
	`

	rows, err := s.q.QueryContext(ctx, query, importID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot: %w", err)
	}
	defer rows.Close()

	result = make([]SnapshotRow, 0)
	for rows.Next() {
		var (
			row     = SnapshotRow{ImportID: importID}
			status  string
			payload []byte
		)
		if err := rows.Scan(&row.Code, &status, &row.MeasureA, &row.MeasureB, &row.FlaggedBySource, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if row.Status, err = inventory.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("snapshot row %s: %w", row.Code, err)
		}
		if row.Payload, err = decodePayload(payload); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot: %w", err)
	}
	return result, nil
}
