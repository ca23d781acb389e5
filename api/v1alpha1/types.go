package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// JobKind determines how a job's result is routed once materialized.
type JobKind string

const (
	JobKindBackgroundRemoval JobKind = "background-removal"
	JobKindModelGeneration   JobKind = "model-generation"
)

// JobStatus is the public lifecycle state of a job. Completed is only
// reported once the result has been persisted to durable storage.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// SubmitJobRequest is the body of POST /jobs.
type SubmitJobRequest struct {
	Kind      JobKind           `json:"kind"`
	ItemID    uuid.UUID         `json:"itemId"`
	ImageUrls []string          `json:"imageUrls,omitempty"`
	ImageData string            `json:"imageData,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// Job is the ledger row projection returned by the jobs endpoints.
type Job struct {
	JobID       string     `json:"jobId"`
	ItemID      uuid.UUID  `json:"itemId"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     *string    `json:"message,omitempty"`
	ResultUrls  []string   `json:"resultUrls,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// WebhookPayload is the push notification delivered by the generation
// service. The service reports either a list of download urls or a single
// one depending on the job kind.
type WebhookPayload struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Progress     *int     `json:"progress,omitempty"`
	Message      string   `json:"message,omitempty"`
	DownloadUrls []string `json:"download_urls,omitempty"`
	DownloadUrl  string   `json:"download_url,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Urls normalizes the two download url shapes into one slice.
func (p WebhookPayload) Urls() []string {
	if len(p.DownloadUrls) > 0 {
		return p.DownloadUrls
	}
	if p.DownloadUrl != "" {
		return []string{p.DownloadUrl}
	}
	return nil
}

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	Name string `json:"name"`
}

// Item is a consumer record referencing generated assets.
type Item struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	ModelUrl          *string   `json:"modelUrl,omitempty"`
	ProcessedImages   []string  `json:"processedImages,omitempty"`
	GenerationPending bool      `json:"generationPending"`
	ActiveJobID       *string   `json:"activeJobId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Error is the generic error body returned by the API.
type Error struct {
	Message string `json:"message"`
}

// CancelResponse acknowledges a job cancellation.
type CancelResponse struct {
	Success bool `json:"success"`
}
