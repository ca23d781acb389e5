package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/roomstudio/asset-forge/api/v1alpha1"
)

// Job status constants. Completed means the result is durable; a job whose
// remote side finished but whose artifacts are not yet uploaded stays in
// processing with RemoteResultRefs set.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Failure tags recorded in the Error column so operators can tell apart the
// ways a job can end up failed.
const (
	FailureTagRemote        = "remote"
	FailureTagLost          = "lost"
	FailureTagMaterialation = "materialization"
	FailureTagCancelled     = "cancelled"
)

type Job struct {
	ID                string    `gorm:"primaryKey"`
	ItemID            uuid.UUID `gorm:"index;not null"`
	Kind              string    `gorm:"not null"`
	Status            string    `gorm:"index;not null"`
	Progress          int
	Message           string
	InputRefs         *JSONField[[]string] `gorm:"type:jsonb"`
	ResultRefs        *JSONField[[]string] `gorm:"type:jsonb"`
	RemoteResultRefs  *JSONField[[]string] `gorm:"type:jsonb"`
	ArtifactStamp     *int64
	Error             *string
	FailureTag        *string
	RetryCount        int
	LastPolledAt      *time.Time
	WebhookReceivedAt *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// IsTerminal reports whether the job accepts no further status writes.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j *Job) ResultUrls() []string {
	if j.ResultRefs == nil {
		return nil
	}
	return j.ResultRefs.Data
}

func (j *Job) RemoteUrls() []string {
	if j.RemoteResultRefs == nil {
		return nil
	}
	return j.RemoteResultRefs.Data
}

func (j *Job) Materialized() bool {
	return len(j.ResultUrls()) > 0
}

func (j *Job) ToApiResource() api.Job {
	resource := api.Job{
		JobID:       j.ID,
		ItemID:      j.ItemID,
		Kind:        api.JobKind(j.Kind),
		Status:      api.JobStatus(j.Status),
		Progress:    j.Progress,
		ResultUrls:  j.ResultUrls(),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
	if j.Message != "" {
		resource.Message = &j.Message
	}
	return resource
}
