package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/model"
	"github.com/waijian1/resume-parser-project/pkg/resilience"
)

// NERService is the HTTP client for the entity-recognition
// collaborator. Calls go through the resilience executor because
// entity extraction is best-effort for the pipeline.
type NERService struct {
	config     *config.NERConfig
	httpClient *http.Client
	executor   *resilience.Executor
}

type nerDetectRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type nerDetectResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Entities []model.Entity `json:"entities"`
	} `json:"data"`
}

func NewNERService(cfg *config.NERConfig, executor *resilience.Executor) *NERService {
	return &NERService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		executor: executor,
	}
}

// DetectEntities submits text for entity recognition. The text is
// truncated to the configured payload cap before submission because
// the collaborator enforces a maximum size.
func (s *NERService) DetectEntities(ctx context.Context, text string) ([]model.Entity, error) {
	if text == "" {
		return nil, nil
	}
	if s.config.MaxChars > 0 && len(text) > s.config.MaxChars {
		text = text[:s.config.MaxChars]
	}

	var entities []model.Entity
	err := s.executor.Execute(ctx, "ner_detect_entities", func(ctx context.Context) error {
		result, callErr := s.detect(ctx, text)
		if callErr != nil {
			return callErr
		}
		entities = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entities, nil
}

func (s *NERService) detect(ctx context.Context, text string) ([]model.Entity, error) {
	reqBody := nerDetectRequest{
		Text:     text,
		Language: s.config.Language,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/v1/entities", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result nerDetectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("NER API error: %s", result.Message)
	}

	return result.Data.Entities, nil
}
