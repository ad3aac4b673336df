package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/model"
)

// Job status values reported by the OCR service. Succeeded, failed and
// partial are terminal.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"
	JobStatusPartial    = "partial"
)

// OCRService is the HTTP client for the asynchronous OCR collaborator.
type OCRService struct {
	config     *config.OCRConfig
	httpClient *http.Client
}

type ocrSubmitRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type ocrSubmitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		JobID string `json:"job_id"`
	} `json:"data"`
}

type ocrStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		JobID    string `json:"job_id"`
		Status   string `json:"status"`
		ErrorMsg string `json:"err_msg,omitempty"`
	} `json:"data"`
}

type ocrBlocksResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		JobID     string        `json:"job_id"`
		Blocks    []model.Block `json:"blocks"`
		NextToken string        `json:"next_token,omitempty"`
	} `json:"data"`
}

func NewOCRService(cfg *config.OCRConfig) *OCRService {
	return &OCRService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SubmitJob starts a text-detection job for a stored object and
// returns the job identifier.
func (s *OCRService) SubmitJob(ctx context.Context, bucket, key string) (string, error) {
	reqBody := ocrSubmitRequest{
		Bucket: bucket,
		Key:    key,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/v1/jobs", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result ocrSubmitResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return "", fmt.Errorf("OCR API error: %s", result.Message)
	}

	return result.Data.JobID, nil
}

// GetJobStatus queries the current status of a job.
func (s *OCRService) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/jobs/%s", s.config.APIURL, jobID), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result ocrStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return "", fmt.Errorf("OCR API error: %s", result.Message)
	}

	return result.Data.Status, nil
}

// GetBlocks fetches one page of result blocks. An empty next token
// requests the first page; the returned token is empty on the last
// page.
func (s *OCRService) GetBlocks(ctx context.Context, jobID, nextToken string) ([]model.Block, string, error) {
	endpoint := fmt.Sprintf("%s/v1/jobs/%s/blocks", s.config.APIURL, jobID)
	if nextToken != "" {
		endpoint += "?next_token=" + url.QueryEscape(nextToken)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	var result ocrBlocksResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return nil, "", fmt.Errorf("OCR API error: %s", result.Message)
	}

	return result.Data.Blocks, result.Data.NextToken, nil
}
