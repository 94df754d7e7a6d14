package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/applypass/applypass-api/internal/api"
	"github.com/applypass/applypass-api/internal/api/middleware"
	"github.com/applypass/applypass-api/internal/config"
	"github.com/applypass/applypass-api/internal/domain"
)

// Sentinel errors for the worker protocol.
var (
	// ErrNoTask means the claim endpoint returned an empty queue.
	ErrNoTask = errors.New("no task available")

	// ErrTaskNotRunning means the API rejected a heartbeat or finalize
	// because the task left the running state. The batch must be abandoned.
	ErrTaskNotRunning = errors.New("task is no longer running")
)

// APIClient is the worker's view of the queue API. The runtime depends on
// this interface so tests can script the server side.
type APIClient interface {
	ClaimNext(ctx context.Context) (*api.ClaimedTaskResponse, error)
	Heartbeat(ctx context.Context, taskID string, entry *domain.RunLogEntry) error
	Complete(ctx context.Context, taskID string, outcomes []domain.JobOutcome) error
	Fail(ctx context.Context, taskID string, outcomes []domain.JobOutcome, errorMessage string) error
}

// Client is the HTTP implementation of APIClient.
type Client struct {
	baseURL    string
	secret     string
	workerID   string
	httpClient *http.Client
}

var _ APIClient = (*Client)(nil)

// NewClient creates a protocol client for the API at cfg.APIBaseURL,
// authenticating as workerID.
func NewClient(cfg config.WorkerConfig, workerID string) *Client {
	return &Client{
		baseURL:  cfg.APIBaseURL,
		secret:   cfg.Secret,
		workerID: workerID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClaimNext asks the API for the oldest pending task.
// Returns ErrNoTask when the queue is empty.
func (c *Client) ClaimNext(ctx context.Context) (*api.ClaimedTaskResponse, error) {
	resp, err := c.post(ctx, "/api/worker/claim-next", nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var task api.ClaimedTaskResponse
		if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode claimed task: %w", err)
		}
		return &task, nil
	case http.StatusNoContent:
		return nil, ErrNoTask
	default:
		return nil, unexpectedStatus(resp)
	}
}

// Heartbeat extends the lease on taskID, optionally appending entry to the
// run log. Returns ErrTaskNotRunning on a 409.
func (c *Client) Heartbeat(ctx context.Context, taskID string, entry *domain.RunLogEntry) error {
	req := api.HeartbeatRequest{}
	if entry != nil {
		req.Entry = &api.RunLogEntryRequest{
			Level:   entry.Level,
			Message: entry.Message,
			JobID:   entry.JobID,
		}
	}

	resp, err := c.post(ctx, "/api/worker/tasks/"+taskID+"/heartbeat", req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	return checkMutationStatus(resp)
}

// Complete reports the finished batch's per-job outcomes.
func (c *Client) Complete(ctx context.Context, taskID string, outcomes []domain.JobOutcome) error {
	resp, err := c.post(ctx, "/api/worker/tasks/"+taskID+"/complete",
		api.CompleteTaskRequest{Outcomes: outcomes})
	if err != nil {
		return err
	}
	defer closeBody(resp)

	return checkMutationStatus(resp)
}

// Fail reports an abandoned batch with whatever outcomes were gathered.
func (c *Client) Fail(
	ctx context.Context,
	taskID string,
	outcomes []domain.JobOutcome,
	errorMessage string,
) error {
	resp, err := c.post(ctx, "/api/worker/tasks/"+taskID+"/fail",
		api.FailTaskRequest{Outcomes: outcomes, ErrorMessage: errorMessage})
	if err != nil {
		return err
	}
	defer closeBody(resp)

	return checkMutationStatus(resp)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.WorkerSecretHeader, c.secret)
	req.Header.Set(middleware.WorkerIDHeader, c.workerID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}

func checkMutationStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrTaskNotRunning
	default:
		return unexpectedStatus(resp)
	}
}

func unexpectedStatus(resp *http.Response) error {
	// Include a short body excerpt; error responses are small JSON objects.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d from %s: %s",
		resp.StatusCode, resp.Request.URL.Path, string(body))
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
