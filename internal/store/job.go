package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/roomstudio/asset-forge/internal/store/model"
)

// Job interface for ledger row operations.
type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Update(ctx context.Context, job model.Job) (*model.Job, error)
	ListActive(ctx context.Context) (model.JobList, error)
	UpdateLastPolledAt(ctx context.Context, id string, polledAt time.Time) error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

// Update writes the full row back. Callers are expected to hold the
// reconciler's per-job lock so concurrent writers never interleave.
func (s *JobStore) Update(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Save(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating job: %w", result.Error)
	}
	return &job, nil
}

// ListActive returns all jobs still worth polling.
func (s *JobStore) ListActive(ctx context.Context) (model.JobList, error) {
	var jobs model.JobList
	result := s.getDB(ctx).
		Where("status IN ?", []string{model.JobStatusPending, model.JobStatusProcessing}).
		Order("created_at").
		Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("listing active jobs: %w", result.Error)
	}
	return jobs, nil
}

func (s *JobStore) UpdateLastPolledAt(ctx context.Context, id string, polledAt time.Time) error {
	result := s.getDB(ctx).Model(&model.Job{}).Where("id = ?", id).Update("last_polled_at", polledAt)
	if result.Error != nil {
		return fmt.Errorf("updating job last_polled_at: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
