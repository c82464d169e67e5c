package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cablesync/internal/inventory"
)

const eventColumns = 13

// WriteEvents appends the events of one run in chunks. Position keeps the run's
// emission order.
func (s *PostgresStore) WriteEvents(ctx context.Context, events []inventory.ChangeEvent) (err error) {
	defer func(start time.Time) { s.observe("write_events", start, err) }(time.Now())

	chunk := boundedChunk(s.chunks.eventWrite, eventColumns)
	for start := 0; start < len(events); start += chunk {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		end := start + chunk
		if end > len(events) {
			end = len(events)
		}

		args := make([]interface{}, 0, (end-start)*eventColumns)
		for i := start; i < end; i++ {
			e := events[i]
			payload, err := jsonOrNull(e.Payload)
			if err != nil {
				return err
			}
			args = append(args,
				e.ID, e.ScopeID, nullableString(e.FromImportID), e.ToImportID, i, e.Code,
				string(e.ChangeType), e.Severity.String(), e.Field,
				nullableString(e.OldValue), nullableString(e.NewValue), payload, e.CreatedAt,
			)
		}

		query := `INSERT INTO change_events (id, scope_id, from_import_id, to_import_id, position, code,
			change_type, severity, field, old_value, new_value, payload, created_at) VALUES ` +
			valuesClause(end-start, eventColumns)
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return storeError(fmt.Sprintf("write change events %d-%d", start, end-1), err)
		}
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, importID string, filter EventFilter, page Page) (events []inventory.ChangeEvent, err error) {
	defer func(start time.Time) { s.observe("list_events", start, err) }(time.Now())

	limit, offset := pageBounds(page)
	conditions := []string{"to_import_id = $1"}
	args := []interface{}{importID}

	if filter.ChangeType != nil {
		args = append(args, string(*filter.ChangeType))
		conditions = append(conditions, fmt.Sprintf("change_type = $%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, filter.Severity.String())
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Code != "" {
		args = append(args, filter.Code)
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)))
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT id, scope_id, from_import_id, to_import_id, code, change_type, severity, field,
			old_value, new_value, payload, created_at
		FROM change_events
		WHERE %s
		ORDER BY position
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change events: %w", err)
	}
	defer rows.Close()

	events = make([]inventory.ChangeEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change events: %w", err)
	}
	return events, nil
}

// EventOutcomes returns the classification of every event of one import.
func (s *PostgresStore) EventOutcomes(ctx context.Context, importID string) (outcomes []inventory.Outcome, err error) {
	defer func(start time.Time) { s.observe("event_outcomes", start, err) }(time.Now())

	rows, err := s.q.QueryContext(ctx,
		`SELECT change_type, severity FROM change_events WHERE to_import_id = $1 ORDER BY position`, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to read event outcomes: %w", err)
	}
	defer rows.Close()

	outcomes = make([]inventory.Outcome, 0)
	for rows.Next() {
		var changeType, severity string
		if err := rows.Scan(&changeType, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan event outcome: %w", err)
		}
		o, err := parseOutcome(changeType, severity)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event outcomes: %w", err)
	}
	return outcomes, nil
}

func scanEvent(row rowScanner) (*inventory.ChangeEvent, error) {
	var (
		e          inventory.ChangeEvent
		from       sql.NullString
		oldValue   sql.NullString
		newValue   sql.NullString
		changeType string
		severity   string
		payload    []byte
	)
	if err := row.Scan(&e.ID, &e.ScopeID, &from, &e.ToImportID, &e.Code, &changeType, &severity, &e.Field,
		&oldValue, &newValue, &payload, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan change event: %w", err)
	}

	o, err := parseOutcome(changeType, severity)
	if err != nil {
		return nil, err
	}
	e.ChangeType = o.ChangeType
	e.Severity = o.Severity
	e.FromImportID = stringPtrFromNull(from)
	e.OldValue = stringPtrFromNull(oldValue)
	e.NewValue = stringPtrFromNull(newValue)
	if e.Payload, err = decodePayload(payload); err != nil {
		return nil, err
	}
	return &e, nil
}

func parseOutcome(changeType, severity string) (inventory.Outcome, error) {
	ct, err := inventory.ParseChangeType(changeType)
	if err != nil {
		return inventory.Outcome{}, err
	}
	sev, err := inventory.ParseSeverity(severity)
	if err != nil {
		return inventory.Outcome{}, err
	}
	return inventory.Outcome{ChangeType: ct, Severity: sev}, nil
}
