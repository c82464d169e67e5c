package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"cablesync/internal/config"
	"cablesync/internal/constants"
	pkgerrors "cablesync/pkg/errors"
	"cablesync/pkg/metrics"
)

const (
	maxBindParameters = 65535

	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type chunkSizes struct {
	snapshotWrite   int
	snapshotRead    int
	eventWrite      int
	projectionWrite int
}

type PostgresStore struct {
	db          *sql.DB
	q           dbtx
	chunks      chunkSizes
	now         func() time.Time
	serviceName string
}

type StoreOption func(*PostgresStore)

func WithChunkSizes(cfg config.ImportConfig) StoreOption {
	return func(s *PostgresStore) {
		if cfg.SnapshotWriteChunk > 0 {
			s.chunks.snapshotWrite = cfg.SnapshotWriteChunk
		}
		if cfg.SnapshotReadPage > 0 {
			s.chunks.snapshotRead = cfg.SnapshotReadPage
		}
		if cfg.EventWriteChunk > 0 {
			s.chunks.eventWrite = cfg.EventWriteChunk
		}
		if cfg.ProjectionWriteChunk > 0 {
			s.chunks.projectionWrite = cfg.ProjectionWriteChunk
		}
	}
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *PostgresStore) {
		s.now = now
	}
}

func WithStoreServiceName(name string) StoreOption {
	return func(s *PostgresStore) {
		s.serviceName = name
	}
}

func NewPostgresStore(db *sql.DB, opts ...StoreOption) *PostgresStore {
	s := &PostgresStore{
		db: db,
		q:  db,
		chunks: chunkSizes{
			snapshotWrite:   constants.DefaultSnapshotWriteChunk,
			snapshotRead:    constants.DefaultSnapshotReadPage,
			eventWrite:      constants.DefaultEventWriteChunk,
			projectionWrite: constants.DefaultProjectionWriteChunk,
		},
		now:         func() time.Time { return time.Now().UTC() },
		serviceName: "unknown",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx LedgerWriter) error) (err error) {
	start := time.Now()
	defer func() { s.observe("transaction", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txStore := *s
	txStore.q = tx

	if err := fn(&txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(s.serviceName, "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration(s.serviceName, "postgres", operation, time.Since(start))
	if s.db != nil {
		metrics.SetDatabaseConnectionsActive(s.serviceName, "postgres", s.db.Stats().InUse)
	}
}

// storeError maps constraint violations to coded errors and wraps the rest.
func storeError(action string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("failed to %s: duplicate key", action))
		case pqForeignKeyViolation:
			return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", fmt.Sprintf("failed to %s: referenced row does not exist", action))
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// boundedChunk keeps a multi-row statement under the bind parameter limit.
func boundedChunk(chunk, columns int) int {
	limit := maxBindParameters / columns
	if chunk <= 0 || chunk > limit {
		return limit
	}
	return chunk
}

// valuesClause renders "($1,$2),($3,$4)" for rows x columns placeholders.
func valuesClause(rows, columns int) string {
	var b strings.Builder
	b.Grow(rows * columns * 5)
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < columns; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// jsonOrNull encodes a payload for a JSONB column. lib/pq sends []byte as bytea, so
// the document travels as text.
func jsonOrNull(payload map[string]string) (interface{}, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(raw), nil
}

func decodePayload(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload map[string]string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return payload, nil
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func pageBounds(page Page) (int, int) {
	limit := page.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
