package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/internal/store/model"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	s := store.NewStore(db)
	require.NoError(t, s.InitialMigration())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestJob(itemID uuid.UUID, id, status string) model.Job {
	return model.Job{
		ID:     id,
		ItemID: itemID,
		Kind:   "model-generation",
		Status: status,
	}
}

func TestJobCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID := uuid.New()

	created, err := s.Job().Create(ctx, newTestJob(itemID, "j1", model.JobStatusPending))
	require.NoError(t, err)
	assert.Equal(t, "j1", created.ID)

	got, err := s.Job().Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, itemID, got.ItemID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.False(t, got.IsTerminal())
}

func TestJobGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Job().Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestJobCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID := uuid.New()

	_, err := s.Job().Create(ctx, newTestJob(itemID, "j1", model.JobStatusPending))
	require.NoError(t, err)

	_, err = s.Job().Create(ctx, newTestJob(itemID, "j1", model.JobStatusPending))
	require.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestJobUpdateRoundTripsJSONFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Job().Create(ctx, newTestJob(uuid.New(), "j1", model.JobStatusProcessing))
	require.NoError(t, err)

	stamp := time.Now().UnixMilli()
	job.RemoteResultRefs = model.MakeJSONField([]string{"http://remote/a.glb", "http://remote/b.glb"})
	job.ArtifactStamp = &stamp
	job.Progress = 60

	_, err = s.Job().Update(ctx, *job)
	require.NoError(t, err)

	got, err := s.Job().Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://remote/a.glb", "http://remote/b.glb"}, got.RemoteUrls())
	require.NotNil(t, got.ArtifactStamp)
	assert.Equal(t, stamp, *got.ArtifactStamp)
	assert.Equal(t, 60, got.Progress)
	assert.False(t, got.Materialized())
}

func TestJobListActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID := uuid.New()

	for i, status := range []string{
		model.JobStatusPending,
		model.JobStatusProcessing,
		model.JobStatusCompleted,
		model.JobStatusFailed,
	} {
		_, err := s.Job().Create(ctx, newTestJob(itemID, fmt.Sprintf("j%d", i), status))
		require.NoError(t, err)
	}

	active, err := s.Job().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "j0", active[0].ID)
	assert.Equal(t, "j1", active[1].ID)
}

func TestJobUpdateLastPolledAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Job().Create(ctx, newTestJob(uuid.New(), "j1", model.JobStatusPending))
	require.NoError(t, err)

	polledAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Job().UpdateLastPolledAt(ctx, "j1", polledAt))

	got, err := s.Job().Get(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, got.LastPolledAt)
	assert.Equal(t, polledAt, got.LastPolledAt.UTC())

	err = s.Job().UpdateLastPolledAt(ctx, "missing", polledAt)
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestItemCreateGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item, err := s.Item().Create(ctx, model.Item{ID: uuid.New(), Name: "armchair"})
	require.NoError(t, err)

	jobID := "j1"
	item.GenerationPending = true
	item.ActiveJobID = &jobID
	item.ProcessedImages = model.MakeJSONField([]string{"http://cdn/items/x/images/a.png"})
	_, err = s.Item().Update(ctx, *item)
	require.NoError(t, err)

	got, err := s.Item().Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "armchair", got.Name)
	assert.True(t, got.GenerationPending)
	require.NotNil(t, got.ActiveJobID)
	assert.Equal(t, "j1", *got.ActiveJobID)
	assert.Equal(t, []string{"http://cdn/items/x/images/a.png"}, got.Images())

	_, err = s.Item().Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestTransactionRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txCtx, err := s.NewTransactionContext(ctx)
	require.NoError(t, err)

	_, err = s.Job().Create(txCtx, newTestJob(uuid.New(), "j1", model.JobStatusPending))
	require.NoError(t, err)

	_, err = store.Rollback(txCtx)
	require.NoError(t, err)

	_, err = s.Job().Get(ctx, "j1")
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestTransactionCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txCtx, err := s.NewTransactionContext(ctx)
	require.NoError(t, err)

	_, err = s.Job().Create(txCtx, newTestJob(uuid.New(), "j1", model.JobStatusPending))
	require.NoError(t, err)

	_, err = store.Commit(txCtx)
	require.NoError(t, err)

	got, err := s.Job().Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", got.ID)
}
