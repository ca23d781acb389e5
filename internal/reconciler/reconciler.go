package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/artifacts"
	"github.com/roomstudio/asset-forge/internal/client"
	"github.com/roomstudio/asset-forge/internal/events"
	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/internal/store/model"
	"github.com/roomstudio/asset-forge/pkg/metrics"
)

const (
	defaultRetryLimit  = 5
	defaultConcurrency = 8
)

// RemoteClient is the slice of the generation service client the reconciler
// needs.
type RemoteClient interface {
	Status(ctx context.Context, jobID string) (*client.JobStatus, error)
	DownloadResult(ctx context.Context, ref string) ([]byte, string, error)
	Cancel(ctx context.Context, jobID string) error
}

// ArtifactStore persists result blobs; uploads to the same path overwrite.
type ArtifactStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// trigger identifies which driver observed the remote state.
type trigger int

const (
	triggerPoll trigger = iota
	triggerWebhook
)

// Reconciler merges remote-reported job state into the ledger. Poll sweeps
// and webhooks feed the same transition function; updates for one job are
// serialized by a keyed lock so a stale observation can never regress a row.
type Reconciler struct {
	store       store.Store
	remote      RemoteClient
	artifacts   ArtifactStore
	producer    *events.EventProducer
	locks       *keyLock
	retryLimit  int
	concurrency int
	nowFunc     func() time.Time
}

type Option func(r *Reconciler)

func WithRetryLimit(limit int) Option {
	return func(r *Reconciler) {
		r.retryLimit = limit
	}
}

func WithSweepConcurrency(n int) Option {
	return func(r *Reconciler) {
		r.concurrency = n
	}
}

func WithEventProducer(ep *events.EventProducer) Option {
	return func(r *Reconciler) {
		r.producer = ep
	}
}

// WithClock injects the time source, letting tests pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.nowFunc = now
	}
}

func New(s store.Store, remote RemoteClient, artifactStore ArtifactStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       s,
		remote:      remote,
		artifacts:   artifactStore,
		locks:       newKeyLock(),
		retryLimit:  defaultRetryLimit,
		concurrency: defaultConcurrency,
		nowFunc:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// HandleWebhook applies a pushed status update. Unknown job ids return
// store.ErrRecordNotFound without creating a ledger row.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload api.WebhookPayload) error {
	update := client.JobStatus{
		JobID:        payload.JobID,
		Status:       payload.Status,
		Message:      payload.Message,
		DownloadUrls: payload.Urls(),
		Error:        payload.Error,
	}
	if payload.Progress != nil {
		update.Progress = *payload.Progress
	}
	return r.apply(ctx, payload.JobID, &update, triggerWebhook)
}

// PollJob fetches the remote status of one job and applies it. Transient
// remote errors are swallowed after logging; the next sweep retries.
func (r *Reconciler) PollJob(ctx context.Context, jobID string) error {
	update, err := r.remote.Status(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrJobNotFound):
			// The remote side lost the job. Terminal, tagged distinctly from
			// a job that actually failed.
			return r.applyLost(ctx, jobID, err)
		case errors.Is(err, client.ErrRemoteUnavailable):
			zap.S().Named("reconciler").Debugf("job %s: remote unavailable, will retry: %v", jobID, err)
			// record the attempt so operators can spot jobs stuck behind an outage
			if err := r.store.Job().UpdateLastPolledAt(ctx, jobID, r.nowFunc()); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
				return err
			}
			return nil
		default:
			return err
		}
	}
	return r.apply(ctx, jobID, update, triggerPoll)
}

// Cancel forwards a user cancellation and marks the ledger row failed.
// Cancelling an already completed job is a no-op success; the result stays.
func (r *Reconciler) Cancel(ctx context.Context, jobID string) (*model.Job, error) {
	r.locks.Lock(jobID)
	defer r.locks.Unlock(jobID)

	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.IsTerminal() {
		return job, nil
	}

	if err := r.remote.Cancel(ctx, jobID); err != nil {
		// best effort: the row is still marked failed locally
		zap.S().Named("reconciler").Warnf("job %s: remote cancel failed: %v", jobID, err)
	}

	return r.markFailed(ctx, job, model.FailureTagCancelled, "cancelled by user")
}

func (r *Reconciler) apply(ctx context.Context, jobID string, update *client.JobStatus, via trigger) error {
	r.locks.Lock(jobID)
	defer r.locks.Unlock(jobID)

	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		return err
	}

	now := r.nowFunc()
	if via == triggerWebhook {
		job.WebhookReceivedAt = &now
	} else {
		job.LastPolledAt = &now
	}

	// Terminal rows accept no further status or result writes; a late or
	// replayed observation is harmless.
	if job.IsTerminal() {
		_, err := r.store.Job().Update(ctx, *job)
		return err
	}

	switch strings.ToLower(update.Status) {
	case model.JobStatusFailed:
		reason := update.Error
		if reason == "" {
			reason = update.Message
		}
		if reason == "" {
			reason = "generation failed"
		}
		_, err := r.markFailed(ctx, job, model.FailureTagRemote, reason)
		return err

	case model.JobStatusCompleted:
		return r.materialize(ctx, job, update)

	case model.JobStatusPending, model.JobStatusProcessing:
		r.forwardProgress(job, update)
		_, err := r.store.Job().Update(ctx, *job)
		return err

	default:
		zap.S().Named("reconciler").Warnf("job %s: ignoring unknown remote status %q", job.ID, update.Status)
		_, err := r.store.Job().Update(ctx, *job)
		return err
	}
}

// applyLost marks a job the remote service no longer knows about.
func (r *Reconciler) applyLost(ctx context.Context, jobID string, cause error) error {
	r.locks.Lock(jobID)
	defer r.locks.Unlock(jobID)

	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}

	_, err = r.markFailed(ctx, job, model.FailureTagLost, cause.Error())
	return err
}

// forwardProgress folds an in-flight update into the row without ever
// regressing it. The remote contract does not promise monotonicity.
func (r *Reconciler) forwardProgress(job *model.Job, update *client.JobStatus) {
	if strings.ToLower(update.Status) == model.JobStatusProcessing {
		job.Status = model.JobStatusProcessing
	}
	if update.Progress > job.Progress {
		job.Progress = update.Progress
	}
	if update.Message != "" {
		job.Message = update.Message
	}
}

// materialize downloads the remote results and persists them durably. The
// remote refs and the artifact stamp are written to the ledger before the
// first attempt, so recovery after a crash is a pure retry of this function.
func (r *Reconciler) materialize(ctx context.Context, job *model.Job, update *client.JobStatus) error {
	if job.Materialized() {
		// replayed webhook or stale poll for a job already done
		_, err := r.store.Job().Update(ctx, *job)
		return err
	}

	if len(job.RemoteUrls()) == 0 {
		refs := update.ResultRefs()
		if len(refs) == 0 {
			zap.S().Named("reconciler").Warnf("job %s: remote reports completed without results", job.ID)
			_, err := r.markFailed(ctx, job, model.FailureTagRemote, "completed without results")
			return err
		}
		stamp := r.nowFunc().UnixMilli()
		job.RemoteResultRefs = model.MakeJSONField(refs)
		job.ArtifactStamp = &stamp
		job.Status = model.JobStatusProcessing
		updated, err := r.store.Job().Update(ctx, *job)
		if err != nil {
			return err
		}
		job = updated
	}

	durable, err := r.uploadResults(ctx, job)
	if err != nil {
		metrics.IncreaseMaterializationAttemptsMetric("failure")
		job.RetryCount++
		if job.RetryCount >= r.retryLimit {
			zap.S().Named("reconciler").Errorf("job %s: materialization failed after %d attempts: %v", job.ID, job.RetryCount, err)
			_, failErr := r.markFailed(ctx, job, model.FailureTagMaterialation,
				fmt.Sprintf("materialization failed after %d attempts: %v", job.RetryCount, err))
			return failErr
		}
		zap.S().Named("reconciler").Warnf("job %s: materialization attempt %d failed, will retry: %v", job.ID, job.RetryCount, err)
		_, updErr := r.store.Job().Update(ctx, *job)
		return updErr
	}
	metrics.IncreaseMaterializationAttemptsMetric("success")

	now := r.nowFunc()
	job.ResultRefs = model.MakeJSONField(durable)
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = &now
	job.Error = nil
	job.FailureTag = nil
	updated, err := r.store.Job().Update(ctx, *job)
	if err != nil {
		return err
	}

	if err := r.updateItemOnSuccess(ctx, updated); err != nil {
		return err
	}

	metrics.IncreaseJobsCompletedMetric(job.Kind)
	r.emitEvent(ctx, updated)
	return nil
}

func (r *Reconciler) uploadResults(ctx context.Context, job *model.Job) ([]string, error) {
	durable := make([]string, 0, len(job.RemoteUrls()))
	for i, ref := range job.RemoteUrls() {
		data, contentType, err := r.remote.DownloadResult(ctx, ref)
		if err != nil {
			return nil, err
		}

		url, err := r.artifacts.Upload(ctx, r.artifactPath(job, i, ref), data, contentType)
		if err != nil {
			return nil, err
		}
		durable = append(durable, url)
	}
	return durable, nil
}

func (r *Reconciler) artifactPath(job *model.Job, index int, ref string) string {
	stamp := int64(0)
	if job.ArtifactStamp != nil {
		stamp = *job.ArtifactStamp
	}

	if job.Kind == string(api.JobKindModelGeneration) {
		if index == 0 {
			return artifacts.ModelPath(job.ItemID, stamp)
		}
		return fmt.Sprintf("items/%s/%s-%d-%d.glb", job.ItemID, job.ItemID, stamp, index)
	}
	return artifacts.ImagePath(job.ItemID, stamp, artifacts.NameFromRef(ref))
}

func (r *Reconciler) markFailed(ctx context.Context, job *model.Job, tag, reason string) (*model.Job, error) {
	job.Status = model.JobStatusFailed
	job.Error = &reason
	job.FailureTag = &tag
	updated, err := r.store.Job().Update(ctx, *job)
	if err != nil {
		return nil, err
	}

	if err := r.clearItemPending(ctx, updated); err != nil {
		return nil, err
	}

	metrics.IncreaseJobsFailedMetric(job.Kind, tag)
	r.emitEvent(ctx, updated)
	return updated, nil
}

// updateItemOnSuccess routes the durable urls into the owning item.
func (r *Reconciler) updateItemOnSuccess(ctx context.Context, job *model.Job) error {
	item, err := r.store.Item().Get(ctx, job.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			zap.S().Named("reconciler").Warnf("job %s: owning item %s no longer exists", job.ID, job.ItemID)
			return nil
		}
		return err
	}

	switch job.Kind {
	case string(api.JobKindModelGeneration):
		urls := job.ResultUrls()
		item.ModelUrl = &urls[0]
	case string(api.JobKindBackgroundRemoval):
		item.ProcessedImages = model.MakeJSONField(append(item.Images(), job.ResultUrls()...))
	}
	item.GenerationPending = false
	item.ActiveJobID = nil

	_, err = r.store.Item().Update(ctx, *item)
	return err
}

func (r *Reconciler) clearItemPending(ctx context.Context, job *model.Job) error {
	item, err := r.store.Item().Get(ctx, job.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if !item.GenerationPending && item.ActiveJobID == nil {
		return nil
	}
	item.GenerationPending = false
	item.ActiveJobID = nil
	_, err = r.store.Item().Update(ctx, *item)
	return err
}

func (r *Reconciler) emitEvent(ctx context.Context, job *model.Job) {
	if r.producer == nil {
		return
	}

	ev := events.JobEvent{
		JobID:    job.ID,
		ItemID:   job.ItemID.String(),
		Kind:     job.Kind,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.Error != nil {
		ev.Error = *job.Error
	}
	if err := r.producer.WriteJobEvent(ctx, ev); err != nil {
		zap.S().Named("reconciler").Warnf("job %s: failed to emit event: %v", job.ID, err)
	}
}
