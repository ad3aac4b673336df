package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/pkg/resilience"
)

// MLflowService records pipeline runs in an MLflow tracking server
// through its REST API. One tracking run is opened per pipeline
// invocation and closed when the run finishes.
type MLflowService struct {
	config       *config.MLflowConfig
	httpClient   *http.Client
	executor     *resilience.Executor
	experimentID string
}

type mlflowExperiment struct {
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
}

type mlflowGetExperimentResponse struct {
	Experiment mlflowExperiment `json:"experiment"`
}

type mlflowCreateExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

type mlflowRunInfo struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type mlflowCreateRunResponse struct {
	Run struct {
		Info mlflowRunInfo `json:"info"`
	} `json:"run"`
}

func NewMLflowService(cfg *config.MLflowConfig, executor *resilience.Executor) *MLflowService {
	return &MLflowService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		executor: executor,
	}
}

// EnsureExperiment resolves the configured experiment name to an ID,
// creating the experiment if it does not exist. Called once at startup.
func (s *MLflowService) EnsureExperiment(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/2.0/mlflow/experiments/get-by-name?experiment_name=%s",
		s.config.TrackingURL, url.QueryEscape(s.config.Experiment))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		var result mlflowGetExperimentResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		s.experimentID = result.Experiment.ExperimentID
		return nil
	}

	// Not found: create it
	var created mlflowCreateExperimentResponse
	if err := s.post(ctx, "/api/2.0/mlflow/experiments/create", map[string]any{
		"name": s.config.Experiment,
	}, &created); err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}
	s.experimentID = created.ExperimentID
	return nil
}

// StartRun opens a tracking run and returns its ID.
func (s *MLflowService) StartRun(ctx context.Context, name string) (string, error) {
	var result mlflowCreateRunResponse
	err := s.executor.Execute(ctx, "mlflow_start_run", func(ctx context.Context) error {
		return s.post(ctx, "/api/2.0/mlflow/runs/create", map[string]any{
			"experiment_id": s.experimentID,
			"run_name":      name,
			"start_time":    time.Now().UnixMilli(),
		}, &result)
	})
	if err != nil {
		return "", err
	}
	if result.Run.Info.RunID == "" {
		return "", fmt.Errorf("tracking server returned no run id")
	}
	return result.Run.Info.RunID, nil
}

// LogParam records one run parameter.
func (s *MLflowService) LogParam(ctx context.Context, runID, key, value string) error {
	return s.executor.Execute(ctx, "mlflow_log", func(ctx context.Context) error {
		return s.post(ctx, "/api/2.0/mlflow/runs/log-parameter", map[string]any{
			"run_id": runID,
			"key":    key,
			"value":  value,
		}, nil)
	})
}

// LogMetric records one run metric.
func (s *MLflowService) LogMetric(ctx context.Context, runID, key string, value float64) error {
	return s.executor.Execute(ctx, "mlflow_log", func(ctx context.Context) error {
		return s.post(ctx, "/api/2.0/mlflow/runs/log-metric", map[string]any{
			"run_id":    runID,
			"key":       key,
			"value":     value,
			"timestamp": time.Now().UnixMilli(),
			"step":      0,
		}, nil)
	})
}

// LogArtifact uploads a local file into the run's artifact store under
// the given destination folder.
func (s *MLflowService) LogArtifact(ctx context.Context, runID, localPath, artifactDir string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	artifactPath := filepath.Base(localPath)
	if artifactDir != "" {
		artifactPath = artifactDir + "/" + artifactPath
	}
	endpoint := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		s.config.TrackingURL, s.experimentID, runID, artifactPath)

	return s.executor.Execute(ctx, "mlflow_log", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "PUT", endpoint, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("tracking server error %d: %s", resp.StatusCode, string(body))
		}
		return nil
	})
}

// EndRun closes a tracking run with the given outcome.
func (s *MLflowService) EndRun(ctx context.Context, runID string, success bool) error {
	status := "FINISHED"
	if !success {
		status = "FAILED"
	}
	return s.executor.Execute(ctx, "mlflow_log", func(ctx context.Context) error {
		return s.post(ctx, "/api/2.0/mlflow/runs/update", map[string]any{
			"run_id":   runID,
			"status":   status,
			"end_time": time.Now().UnixMilli(),
		}, nil)
	})
}

func (s *MLflowService) post(ctx context.Context, path string, payload map[string]any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.TrackingURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("tracking server error %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
