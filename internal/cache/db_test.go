package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhoury/meetsync/internal/models"
)

func TestDB_Health(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, db.Health(context.Background()))
}

func TestDB_Stats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Events().UpsertBatch(ctx, []models.Event{testEvent("e1"), testEvent("e2")}))
	require.NoError(t, db.Groups().Upsert(ctx, &models.Group{ID: "g1", Name: "G", OwnerID: "u1"}))

	stats, err := db.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["events_cache"])
	assert.Equal(t, int64(1), stats["groups_cache"])
	assert.Equal(t, int64(0), stats["series_cache"])
}

func TestDB_SweepStale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	event := testEvent("e1")
	require.NoError(t, db.Events().Upsert(ctx, &event))

	// Nothing is older than a cutoff in the past.
	swept, err := db.SweepStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, swept)

	// Everything is older than a cutoff in the future.
	swept, err = db.SweepStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	_, err = db.Events().Get(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestDB_MigrationsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// A second run must be a no-op, not an error.
	assert.NoError(t, db.RunMigrations("migrations"))
}
