// Package intakeclient is a Go client for the bulk intake API. It drives the
// full upload flow: batch validation, sync or async dispatch, task polling,
// and result aggregation.
package intakeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ats-backend/internal/intake"
)

// Client talks to the intake API.
type Client struct {
	BaseURL    string
	Token      string // JWT; empty with GuestID set uses guest auth
	GuestID    string
	HTTPClient *http.Client
}

// New constructs a Client with a default HTTP client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.GuestID != "" {
		req.Header.Set("X-Guest-Id", c.GuestID)
	}
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{Status: resp.StatusCode, Code: "unknown", Message: string(body)}
	}
	return &APIError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
}

// BatchFile pairs a display name with a local path.
type BatchFile struct {
	Name string
	Path string
}

// ProgressFunc receives transfer progress while the request body streams.
type ProgressFunc func(sentBytes, totalBytes int64)

// BulkSubmit uploads a batch synchronously and returns the aggregated result.
func (c *Client) BulkSubmit(ctx context.Context, policy intake.DuplicatePolicy, files []BatchFile, onProgress ProgressFunc) (intake.Result, error) {
	resp, err := c.postBatch(ctx, "/api/v1/candidates/bulk", policy, files, onProgress)
	if err != nil {
		return intake.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return intake.Result{}, decodeAPIError(resp)
	}
	var result intake.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return intake.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

// BulkSubmitAsync uploads a batch for background processing and returns the
// upload task ID to poll.
func (c *Client) BulkSubmitAsync(ctx context.Context, policy intake.DuplicatePolicy, files []BatchFile, onProgress ProgressFunc) (string, error) {
	resp, err := c.postBatch(ctx, "/api/v1/candidates/bulk-async", policy, files, onProgress)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", decodeAPIError(resp)
	}
	var accepted struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("decode accepted response: %w", err)
	}
	if accepted.TaskID == "" {
		return "", fmt.Errorf("server accepted batch without a task id")
	}
	return accepted.TaskID, nil
}

func (c *Client) postBatch(ctx context.Context, path string, policy intake.DuplicatePolicy, files []BatchFile, onProgress ProgressFunc) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("policy", string(policy)); err != nil {
		return nil, err
	}
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			return nil, err
		}
		src, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Path, err)
		}
		_, err = io.Copy(part, src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	total := int64(buf.Len())
	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{r: &buf, total: total, report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = total
	c.authorize(req)

	return c.httpClient().Do(req)
}

// progressReader reports bytes consumed by the HTTP transport.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent, p.total)
	}
	return n, err
}

// TaskStatus is one snapshot of an upload task.
type TaskStatus struct {
	TaskID   string         `json:"task_id"`
	Status   string         `json:"status"`
	Progress int            `json:"progress"`
	Result   *intake.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Terminal reports whether the snapshot is final.
func (s TaskStatus) Terminal() bool {
	return s.Status == intake.TaskStatusCompleted || s.Status == intake.TaskStatusFailed
}

// GetTaskStatus fetches the current state of an upload task.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/upload-tasks/"+taskID, nil)
	if err != nil {
		return TaskStatus{}, err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return TaskStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TaskStatus{}, decodeAPIError(resp)
	}
	var status TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return TaskStatus{}, fmt.Errorf("decode task status: %w", err)
	}
	return status, nil
}

// Candidate mirrors the server's candidate resource.
type Candidate struct {
	ID         string    `json:"candidateId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	SourceFile string    `json:"sourceFile,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListCandidates fetches a page of candidates, newest first.
func (c *Client) ListCandidates(ctx context.Context, limit, offset int) ([]Candidate, error) {
	url := fmt.Sprintf("%s/api/v1/candidates?limit=%d&offset=%d", c.BaseURL, limit, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var page []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return page, nil
}
