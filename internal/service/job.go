package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/client"
	"github.com/roomstudio/asset-forge/internal/reconciler"
	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/internal/store/model"
	"github.com/roomstudio/asset-forge/pkg/metrics"
)

const webhookPath = "/api/v1alpha1/webhooks/jobs"

// Submitter is the slice of the generation client the submission path needs.
type Submitter interface {
	Submit(ctx context.Context, req client.SubmitRequest) (string, error)
}

type JobService struct {
	store           store.Store
	remote          Submitter
	reconciler      *reconciler.Reconciler
	callbackBaseUrl string
}

func NewJobService(s store.Store, remote Submitter, r *reconciler.Reconciler, callbackBaseUrl string) *JobService {
	return &JobService{
		store:           s,
		remote:          remote,
		reconciler:      r,
		callbackBaseUrl: callbackBaseUrl,
	}
}

// SubmitJob registers a job with the generation service and persists the
// ledger row. It returns as soon as the remote id is known; results arrive
// later via poll or webhook.
func (s *JobService) SubmitJob(ctx context.Context, request api.SubmitJobRequest) (*api.Job, error) {
	if request.Kind != api.JobKindBackgroundRemoval && request.Kind != api.JobKindModelGeneration {
		return nil, NewErrInvalidRequest(fmt.Sprintf("unknown job kind %q", request.Kind))
	}
	if len(request.ImageUrls) == 0 && request.ImageData == "" {
		return nil, NewErrInvalidRequest("either imageUrls or imageData is required")
	}

	item, err := s.store.Item().Get(ctx, request.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrItemNotFound(request.ItemID)
		}
		return nil, err
	}

	submitReq := client.SubmitRequest{
		Kind:      string(request.Kind),
		ImageUrls: request.ImageUrls,
		ImageData: stripDataUrlPrefix(request.ImageData),
		Options:   request.Options,
	}
	if s.callbackBaseUrl != "" {
		submitReq.CallbackUrl = strings.TrimSuffix(s.callbackBaseUrl, "/") + webhookPath
	}

	jobID, err := s.remote.Submit(ctx, submitReq)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrInvalidPayload):
			return nil, NewErrInvalidRequest(err.Error())
		case errors.Is(err, client.ErrRemoteUnavailable):
			return nil, NewErrGenerationUnavailable(err)
		default:
			return nil, err
		}
	}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Job().Create(ctx, model.Job{
		ID:        jobID,
		ItemID:    request.ItemID,
		Kind:      string(request.Kind),
		Status:    model.JobStatusPending,
		InputRefs: model.MakeJSONField(inputRefs(request)),
	})
	if err != nil {
		if _, rollbackErr := store.Rollback(ctx); rollbackErr != nil {
			zap.S().Named("job_service").Errorf("rollback failed: %v", rollbackErr)
		}
		return nil, err
	}

	item.GenerationPending = true
	item.ActiveJobID = &job.ID
	if _, err := s.store.Item().Update(ctx, *item); err != nil {
		if _, rollbackErr := store.Rollback(ctx); rollbackErr != nil {
			zap.S().Named("job_service").Errorf("rollback failed: %v", rollbackErr)
		}
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.IncreaseJobsSubmittedMetric(job.Kind)
	zap.S().Named("job_service").Infof("job %s submitted for item %s (%s)", job.ID, job.ItemID, job.Kind)

	apiJob := job.ToApiResource()
	return &apiJob, nil
}

func (s *JobService) GetJob(ctx context.Context, jobID string) (*api.Job, error) {
	job, err := s.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	apiJob := job.ToApiResource()
	return &apiJob, nil
}

// CancelJob forwards the cancellation through the reconciler so it takes the
// same per-job lock as poll and webhook updates. Cancelling a completed job
// succeeds without touching its results.
func (s *JobService) CancelJob(ctx context.Context, jobID string) (*api.Job, error) {
	job, err := s.reconciler.Cancel(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	apiJob := job.ToApiResource()
	return &apiJob, nil
}

func inputRefs(request api.SubmitJobRequest) []string {
	refs := append([]string{}, request.ImageUrls...)
	if request.ImageData != "" {
		refs = append(refs, "inline:image-data")
	}
	return refs
}

// stripDataUrlPrefix drops a "data:image/...;base64," prefix the same way
// the generation service itself tolerates it.
func stripDataUrlPrefix(data string) string {
	if idx := strings.Index(data, ","); idx != -1 && strings.HasPrefix(data, "data:") {
		return data[idx+1:]
	}
	return data
}
