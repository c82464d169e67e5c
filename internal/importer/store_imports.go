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

const importColumns = `id, scope_id, previous_import_id, checksum, note, format, entity_count,
	status, failed_phase, normalization_stats, created_at, updated_at`

func (s *PostgresStore) CreateImport(ctx context.Context, imp *Import) (err error) {
	defer func(start time.Time) { s.observe("create_import", start, err) }(time.Now())

	now := s.now()
	imp.CreatedAt = now
	imp.UpdatedAt = now
	if imp.Status == "" {
		imp.Status = ImportPending
	}

	stats, err := json.Marshal(imp.NormalizationStats)
	if err != nil {
		return fmt.Errorf("failed to marshal normalization stats: %w", err)
	}

	query := `
		INSERT INTO imports (id, scope_id, previous_import_id, checksum, note, format, entity_count,
			status, normalization_stats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.q.ExecContext(ctx, query,
		imp.ID, imp.ScopeID, nullableString(imp.PreviousImportID), imp.Checksum, imp.Note, imp.Format,
		imp.EntityCount, string(imp.Status), string(stats), imp.CreatedAt, imp.UpdatedAt,
	)
	if err != nil {
		return storeError("create import", err)
	}
	return nil
}

func (s *PostgresStore) GetImport(ctx context.Context, id string) (imp *Import, err error) {
	defer func(start time.Time) { s.observe("get_import", start, err) }(time.Now())

	query := `SELECT ` + importColumns + ` FROM imports WHERE id = $1`

	imp, err = scanImport(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithCause(err).WithDetail("message", fmt.Sprintf("import %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return imp, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, scopeID string, page Page) (imports []Import, err error) {
	defer func(start time.Time) { s.observe("list_imports", start, err) }(time.Now())

	limit, offset := pageBounds(page)
	query := `
		SELECT ` + importColumns + `
		FROM imports
		WHERE scope_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.q.QueryContext(ctx, query, scopeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	imports = make([]Import, 0)
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, *imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate imports: %w", err)
	}
	return imports, nil
}

func (s *PostgresStore) PreviousImportID(ctx context.Context, scopeID string) (id *string, err error) {
	defer func(start time.Time) { s.observe("previous_import", start, err) }(time.Now())

	var current sql.NullString
	err = s.q.QueryRowContext(ctx,
		`SELECT current_import_id FROM dataset_scopes WHERE scope_id = $1`, scopeID,
	).Scan(&current)
	if err == nil {
		return stringPtrFromNull(current), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read scope pointer: %w", err)
	}

	// Scopes imported before the pointer existed fall back to the newest committed import.
	var latest string
	err = s.q.QueryRowContext(ctx, `
		SELECT id FROM imports
		WHERE scope_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, scopeID, string(ImportCommitted)).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest import: %w", err)
	}
	return &latest, nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, importID, phase string) (err error) {
	defer func(start time.Time) { s.observe("mark_failed", start, err) }(time.Now())

	_, err = s.q.ExecContext(ctx, `
		UPDATE imports SET status = $2, failed_phase = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`, importID, string(ImportFailed), phase, s.now(), string(ImportPending))
	if err != nil {
		return fmt.Errorf("failed to mark import failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkCommitted(ctx context.Context, importID string) (err error) {
	defer func(start time.Time) { s.observe("mark_committed", start, err) }(time.Now())

	res, err := s.q.ExecContext(ctx, `
		UPDATE imports SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`, importID, string(ImportCommitted), s.now(), string(ImportPending))
	if err != nil {
		return fmt.Errorf("failed to mark import committed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("import %s is no longer pending", importID))
	}
	return nil
}

// AdvancePointer moves the scope to next only if it still points at expected.
func (s *PostgresStore) AdvancePointer(ctx context.Context, scopeID string, expected *string, next string) (err error) {
	defer func(start time.Time) { s.observe("advance_pointer", start, err) }(time.Now())

	query := `
		INSERT INTO dataset_scopes (scope_id, current_import_id, updated_at)
		VALUES ($1, $3, $4)
		ON CONFLICT (scope_id) DO UPDATE
		SET current_import_id = EXCLUDED.current_import_id, updated_at = EXCLUDED.updated_at
		WHERE dataset_scopes.current_import_id IS NOT DISTINCT FROM $2::uuid
	`

	res, err := s.q.ExecContext(ctx, query, scopeID, nullableString(expected), next, s.now())
	if err != nil {
		return storeError("advance scope pointer", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return pkgerrors.ErrConflict.
			WithDetail("message", fmt.Sprintf("scope %s was advanced by a concurrent import", scopeID)).
			WithDetail("scope_id", scopeID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImport(row rowScanner) (*Import, error) {
	var (
		imp         Import
		previous    sql.NullString
		failedPhase sql.NullString
		status      string
		stats       []byte
	)
	if err := row.Scan(
		&imp.ID, &imp.ScopeID, &previous, &imp.Checksum, &imp.Note, &imp.Format, &imp.EntityCount,
		&status, &failedPhase, &stats, &imp.CreatedAt, &imp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	imp.PreviousImportID = stringPtrFromNull(previous)
	imp.FailedPhase = stringPtrFromNull(failedPhase)
	imp.Status = ImportStatus(status)
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &imp.NormalizationStats); err != nil {
			return nil, fmt.Errorf("failed to decode normalization stats: %w", err)
		}
	}
	return &imp, nil
}
