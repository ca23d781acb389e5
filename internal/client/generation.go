package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenerationClient is an HTTP client for the asset generation service. It
// holds no state beyond the connection pool; every call is a plain request.
type GenerationClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGenerationClient(baseURL string, timeout time.Duration) *GenerationClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GenerationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type SubmitRequest struct {
	Kind        string            `json:"kind"`
	ImageUrls   []string          `json:"image_urls,omitempty"`
	ImageData   string            `json:"imageData,omitempty"`
	CallbackUrl string            `json:"callback_url,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Error   string `json:"error,omitempty"`
}

// JobStatus is the status payload of the generation service. Depending on
// the job kind the service reports one download url or a list of them.
type JobStatus struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	Message      string   `json:"message,omitempty"`
	DownloadUrls []string `json:"download_urls,omitempty"`
	DownloadUrl  string   `json:"download_url,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// ResultRefs normalizes the two download url shapes into one slice.
func (s *JobStatus) ResultRefs() []string {
	if len(s.DownloadUrls) > 0 {
		return s.DownloadUrls
	}
	if s.DownloadUrl != "" {
		return []string{s.DownloadUrl}
	}
	return nil
}

// Submit registers a new job and returns the remote job id. A non-empty
// CallbackUrl subscribes the caller for webhook delivery.
func (c *GenerationClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	url := fmt.Sprintf("%s/api/jobs", c.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: submit returned %d", ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: submit returned %d: %s", ErrInvalidPayload, resp.StatusCode, readErrorBody(resp.Body))
	}

	var submitResp submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("%w: decoding submit response: %v", ErrRemoteUnavailable, err)
	}
	if submitResp.JobID == "" {
		return "", fmt.Errorf("%w: submit response carries no job id", ErrRemoteUnavailable)
	}

	return submitResp.JobID, nil
}

// Status fetches the remote view of a job.
func (c *GenerationClient) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	url := fmt.Sprintf("%s/api/jobs/%s", c.baseURL, jobID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status returned %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: decoding status response: %v", ErrRemoteUnavailable, err)
	}

	return &status, nil
}

// DownloadResult fetches one result blob from the ref reported by the
// service. Refs are absolute urls on the service's ephemeral storage.
func (c *GenerationClient) DownloadResult(ctx context.Context, ref string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrResultUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: download returned %d for %s", ErrResultUnavailable, resp.StatusCode, ref)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading result body: %v", ErrResultUnavailable, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, contentType, nil
}

// Cancel forwards a best-effort cancellation. A job the service already
// finished or forgot is not an error for the caller.
func (c *GenerationClient) Cancel(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/api/jobs/%s", c.baseURL, jobID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent,
		http.StatusNotFound, http.StatusGone, http.StatusConflict:
		return nil
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: cancel returned %d", ErrRemoteUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("cancel returned %d", resp.StatusCode)
	}
}

func readErrorBody(r io.Reader) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
