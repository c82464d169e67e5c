//go:build integration

package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/internal/inventory"
	"cablesync/internal/logger"
	"cablesync/internal/testinfra"
	pkgerrors "cablesync/pkg/errors"
)

func TestIntegration_PostgresStoreRun(t *testing.T) {
	db, rdb := testinfra.Postgres(t), testinfra.Redis(t)
	ctx := context.Background()

	store := NewPostgresStore(db, WithChunkSizes(config.ImportConfig{
		SnapshotWriteChunk:   2,
		SnapshotReadPage:     2,
		EventWriteChunk:      2,
		ProjectionWriteChunk: 2,
	}))
	cache := NewRedisCounterCache(rdb, time.Minute)
	svc := NewService(store, lineParser{}, logger.NopLogger(), WithCounterCache(cache))

	first := runImport(t, svc, "S", "A,Free\nB,Done\nD,Free")
	assert.Nil(t, first.PreviousImportID)
	assert.Equal(t, 3, first.CountsByChangeType[string(inventory.ChangeNewEntity)])

	second := runImport(t, svc, "S", "A,Blocked\nC,Free\nD,Free")
	require.NotNil(t, second.PreviousImportID)
	assert.Equal(t, first.ImportID, *second.PreviousImportID)
	assert.Equal(t, 1, second.CountsByChangeType[string(inventory.ChangeStatusChanged)])
	assert.Equal(t, 1, second.CountsByChangeType[string(inventory.ChangeNewEntity)])
	assert.Equal(t, 1, second.CountsByChangeType[string(inventory.ChangeDisappearedUnexpected)])
	assert.Equal(t, 0, second.CountsByChangeType[string(inventory.ChangeReworkReopened)])

	imp, err := svc.GetImport(ctx, second.ImportID)
	require.NoError(t, err)
	assert.Equal(t, ImportCommitted, imp.Status)
	assert.Equal(t, constants.FormatCSV, imp.Format)
	assert.Equal(t, 3, imp.EntityCount)

	events, err := svc.ListEvents(ctx, second.ImportID, EventFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "A", events[0].Code)
	assert.Equal(t, "B", events[2].Code)

	missing, err := svc.ListProjection(ctx, "S", ProjectionFilter{MissingOnly: true}, Page{})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "B", missing[0].Code)
	assert.Equal(t, first.ImportID, missing[0].LastImportID)

	summary, err := svc.GetSummary(ctx, second.ImportID)
	require.NoError(t, err)
	recomputed, err := svc.RecomputeSummary(ctx, second.ImportID)
	require.NoError(t, err)
	assert.Equal(t, summary.ByChangeType, recomputed.ByChangeType)
	assert.Equal(t, summary.BySeverity, recomputed.BySeverity)

	previous, err := store.PreviousImportID(ctx, "S")
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, second.ImportID, *previous)
}

func TestIntegration_ReworkCountersAreCached(t *testing.T) {
	db, rdb := testinfra.Postgres(t), testinfra.Redis(t)
	ctx := context.Background()

	cache := NewRedisCounterCache(rdb, time.Minute)
	svc := NewService(NewPostgresStore(db), lineParser{}, logger.NopLogger(), WithCounterCache(cache))

	runImport(t, svc, "S", "A,Done")
	runImport(t, svc, "S", "A,Free")

	rows, err := svc.ListProjection(ctx, "S", ProjectionFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Counters.Rework)

	cached, err := cache.Get(ctx, "S")
	require.NoError(t, err)
	require.True(t, cached.Hit)
	assert.Equal(t, 1, cached.Counters["A"].Rework)

	runImport(t, svc, "S", "A,Done")
	cached, err = cache.Get(ctx, "S")
	require.NoError(t, err)
	assert.False(t, cached.Hit, "a committed import must invalidate the scope counters")
}

func TestIntegration_AdvancePointerConflict(t *testing.T) {
	db := testinfra.Postgres(t)
	ctx := context.Background()
	store := NewPostgresStore(db)

	newImport := func() *Import {
		imp := &Import{
			ID:        uuid.NewString(),
			ScopeID:   "S",
			Checksum:  Checksum([]byte("x")),
			Format:    constants.FormatCSV,
			Status:    ImportPending,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.CreateImport(ctx, imp))
		return imp
	}

	a := newImport()
	b := newImport()

	require.NoError(t, store.AdvancePointer(ctx, "S", nil, a.ID))

	err := store.AdvancePointer(ctx, "S", nil, b.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	require.NoError(t, store.AdvancePointer(ctx, "S", &a.ID, b.ID))

	previous, err := store.PreviousImportID(ctx, "S")
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Equal(t, b.ID, *previous)
}

func TestIntegration_RedisCounterCache(t *testing.T) {
	rdb := testinfra.Redis(t)
	ctx := context.Background()
	cache := NewRedisCounterCache(rdb, time.Minute)

	lookup, err := cache.Get(ctx, "S")
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Zero(t, lookup.Generation)

	stored, err := cache.Set(ctx, "S", lookup.Generation, map[string]Counters{"A": {Rework: 2, Reinstated: 1}})
	require.NoError(t, err)
	require.True(t, stored)

	got, err := cache.Get(ctx, "S")
	require.NoError(t, err)
	require.True(t, got.Hit)
	assert.Equal(t, Counters{Rework: 2, Reinstated: 1}, got.Counters["A"])

	ttl, err := rdb.TTL(ctx, counterKey("S")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, cache.Invalidate(ctx, "S"))
	lookup, err = cache.Get(ctx, "S")
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Equal(t, int64(1), lookup.Generation)
}

func TestIntegration_RedisCounterCache_StaleSetIsDropped(t *testing.T) {
	rdb := testinfra.Redis(t)
	ctx := context.Background()
	cache := NewRedisCounterCache(rdb, time.Minute)

	lookup, err := cache.Get(ctx, "S")
	require.NoError(t, err)
	require.False(t, lookup.Hit)

	require.NoError(t, cache.Invalidate(ctx, "S"))

	stored, err := cache.Set(ctx, "S", lookup.Generation, map[string]Counters{"A": {Rework: 1}})
	require.NoError(t, err)
	assert.False(t, stored)

	lookup, err = cache.Get(ctx, "S")
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
}
