//go:build integration

package vocabulary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/inventory"
	"cablesync/internal/logger"
	"cablesync/internal/testinfra"
	pkgerrors "cablesync/pkg/errors"
	"cablesync/pkg/migrations"
)

func TestIntegration_MongoDBRepository(t *testing.T) {
	db := testinfra.Mongo(t)
	ctx := context.Background()
	require.NoError(t, migrations.EnsureVocabularyCollection(ctx, db))
	require.NoError(t, migrations.EnsureVocabularyCollection(ctx, db), "ensuring twice is a no-op")

	repo := NewRepository(db)
	svc := NewService(repo, nil, 0, logger.NopLogger())

	_, err := repo.Get(ctx, "S")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = svc.Put(ctx, "S", UpdateRequest{Entries: map[string]string{"a.b": "Done", "$x": "Blocked"}})
	require.NoError(t, err)
	_, err = svc.Put(ctx, "S", UpdateRequest{Entries: map[string]string{"a.b": "Reserved"}})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, "S")
	require.NoError(t, err)
	require.Len(t, stored.Entries, 1)
	assert.Equal(t, Entry{Text: "a.b", Status: "Reserved"}, stored.Entries[0])

	v, err := svc.Vocabulary(ctx, "S")
	require.NoError(t, err)
	status, ok := v.Translate("A.B")
	assert.True(t, ok)
	assert.Equal(t, inventory.StatusReserved, status)

	require.NoError(t, repo.Delete(ctx, "S"))
	assert.True(t, pkgerrors.IsNotFound(repo.Delete(ctx, "S")))
}
