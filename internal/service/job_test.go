package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/client"
	"github.com/roomstudio/asset-forge/internal/reconciler"
	"github.com/roomstudio/asset-forge/internal/service"
	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/internal/store/model"
)

type fakeSubmitter struct {
	jobID   string
	err     error
	lastReq client.SubmitRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, req client.SubmitRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.jobID, nil
}

type nopRemote struct{}

func (nopRemote) Status(context.Context, string) (*client.JobStatus, error) {
	return nil, client.ErrJobNotFound
}

func (nopRemote) DownloadResult(context.Context, string) ([]byte, string, error) {
	return nil, "", client.ErrResultUnavailable
}

func (nopRemote) Cancel(context.Context, string) error { return nil }

type nopArtifacts struct{}

func (nopArtifacts) Upload(_ context.Context, path string, _ []byte, _ string) (string, error) {
	return "http://cdn.example.com/" + path, nil
}

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

func newJobService(t *testing.T, submitter *fakeSubmitter) (*service.JobService, store.Store) {
	t.Helper()
	s := newTestStore(t)
	rec := reconciler.New(s, nopRemote{}, nopArtifacts{})
	return service.NewJobService(s, submitter, rec, "http://forge.example.com"), s
}

func seedItem(t *testing.T, s store.Store) *model.Item {
	t.Helper()
	item, err := s.Item().Create(context.Background(), model.Item{ID: uuid.New(), Name: "armchair"})
	require.NoError(t, err)
	return item
}

func TestSubmitJob(t *testing.T) {
	submitter := &fakeSubmitter{jobID: "j1"}
	srv, s := newJobService(t, submitter)
	ctx := context.Background()
	item := seedItem(t, s)

	job, err := srv.SubmitJob(ctx, api.SubmitJobRequest{
		Kind:      api.JobKindBackgroundRemoval,
		ItemID:    item.ID,
		ImageData: "data:image/png;base64,aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
	assert.Equal(t, api.JobStatusPending, job.Status)

	// data url prefix stripped, webhook callback subscribed
	assert.Equal(t, "aGVsbG8=", submitter.lastReq.ImageData)
	assert.Equal(t, "http://forge.example.com/api/v1alpha1/webhooks/jobs", submitter.lastReq.CallbackUrl)

	stored, err := s.Job().Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, stored.Status)
	assert.Equal(t, []string{"inline:image-data"}, stored.InputRefs.Data)

	updatedItem, err := s.Item().Get(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, updatedItem.GenerationPending)
	require.NotNil(t, updatedItem.ActiveJobID)
	assert.Equal(t, "j1", *updatedItem.ActiveJobID)
}

func TestSubmitJobValidation(t *testing.T) {
	submitter := &fakeSubmitter{jobID: "j1"}
	srv, s := newJobService(t, submitter)
	item := seedItem(t, s)

	cases := []struct {
		name    string
		request api.SubmitJobRequest
	}{
		{"unknown kind", api.SubmitJobRequest{Kind: "texture-bake", ItemID: item.ID, ImageData: "aGVsbG8="}},
		{"no inputs", api.SubmitJobRequest{Kind: api.JobKindModelGeneration, ItemID: item.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.SubmitJob(context.Background(), tc.request)
			var invalid *service.ErrInvalidRequest
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestSubmitJobItemNotFound(t *testing.T) {
	submitter := &fakeSubmitter{jobID: "j1"}
	srv, _ := newJobService(t, submitter)

	_, err := srv.SubmitJob(context.Background(), api.SubmitJobRequest{
		Kind:      api.JobKindModelGeneration,
		ItemID:    uuid.New(),
		ImageUrls: []string{"http://example.com/a.png"},
	})
	var notFound *service.ErrResourceNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestSubmitJobRemoteUnavailable(t *testing.T) {
	submitter := &fakeSubmitter{err: fmt.Errorf("%w: submit returned 502", client.ErrRemoteUnavailable)}
	srv, s := newJobService(t, submitter)
	item := seedItem(t, s)

	_, err := srv.SubmitJob(context.Background(), api.SubmitJobRequest{
		Kind:      api.JobKindModelGeneration,
		ItemID:    item.ID,
		ImageUrls: []string{"http://example.com/a.png"},
	})
	var unavailable *service.ErrGenerationUnavailable
	require.ErrorAs(t, err, &unavailable)

	// no ledger row when the remote rejected the submission
	active, err := s.Job().ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSubmitJobInvalidPayloadFromRemote(t *testing.T) {
	submitter := &fakeSubmitter{err: fmt.Errorf("%w: submit returned 400: bad image", client.ErrInvalidPayload)}
	srv, s := newJobService(t, submitter)
	item := seedItem(t, s)

	_, err := srv.SubmitJob(context.Background(), api.SubmitJobRequest{
		Kind:      api.JobKindBackgroundRemoval,
		ItemID:    item.ID,
		ImageData: "aGVsbG8=",
	})
	var invalid *service.ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestGetJob(t *testing.T) {
	submitter := &fakeSubmitter{jobID: "j1"}
	srv, s := newJobService(t, submitter)
	ctx := context.Background()
	item := seedItem(t, s)

	_, err := s.Job().Create(ctx, model.Job{
		ID:     "j1",
		ItemID: item.ID,
		Kind:   string(api.JobKindModelGeneration),
		Status: model.JobStatusProcessing,
	})
	require.NoError(t, err)

	job, err := srv.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, api.JobStatusProcessing, job.Status)
	assert.Equal(t, item.ID, job.ItemID)

	_, err = srv.GetJob(ctx, "missing")
	var notFound *service.ErrResourceNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestCancelJob(t *testing.T) {
	submitter := &fakeSubmitter{jobID: "j1"}
	srv, s := newJobService(t, submitter)
	ctx := context.Background()
	item := seedItem(t, s)

	_, err := s.Job().Create(ctx, model.Job{
		ID:     "j1",
		ItemID: item.ID,
		Kind:   string(api.JobKindModelGeneration),
		Status: model.JobStatusProcessing,
	})
	require.NoError(t, err)

	job, err := srv.CancelJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, api.JobStatusFailed, job.Status)

	_, err = srv.CancelJob(ctx, "missing")
	var notFound *service.ErrResourceNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestCreateItem(t *testing.T) {
	s := newTestStore(t)
	srv := service.NewItemService(s)
	ctx := context.Background()

	item, err := srv.CreateItem(ctx, api.CreateItemRequest{Name: "armchair"})
	require.NoError(t, err)
	assert.Equal(t, "armchair", item.Name)
	assert.NotEqual(t, uuid.Nil, item.ID)

	got, err := srv.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}

func TestCreateItemRequiresName(t *testing.T) {
	s := newTestStore(t)
	srv := service.NewItemService(s)

	_, err := srv.CreateItem(context.Background(), api.CreateItemRequest{})
	var invalid *service.ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestStore(t)
	srv := service.NewItemService(s)

	_, err := srv.GetItem(context.Background(), uuid.New())
	var notFound *service.ErrResourceNotFound
	require.ErrorAs(t, err, &notFound)
}
