package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	configContent := `
server:
  port: 9090
  max_upload_mb: 8
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "test-bucket"
  use_ssl: false
ocr:
  api_url: "https://api.ocr.test"
  api_token: "test-token"
  poll_interval_seconds: 2
  poll_timeout_seconds: 60
ner:
  api_url: "https://api.ner.test"
  api_token: "ner-token"
  max_chars: 1000
mlflow:
  tracking_url: "http://localhost:5000"
  experiment: "test-experiment"
pipeline:
  skills: ["go", "rust"]
  exclude_categories: ["PERSON"]
  preview_chars: 100
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
log:
  level: "debug"
  format: "json"
store:
  max_runs: 50
users:
  - username: "testuser"
    password: "testpass"
    tenant: "testtenant"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	// Test loading config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 8 {
		t.Errorf("Expected max_upload_mb 8, got %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Minio.Endpoint != "localhost:9000" {
		t.Errorf("Expected endpoint localhost:9000, got %s", cfg.Minio.Endpoint)
	}
	if cfg.OCR.PollIntervalSeconds != 2 {
		t.Errorf("Expected poll_interval_seconds 2, got %d", cfg.OCR.PollIntervalSeconds)
	}
	if cfg.NER.MaxChars != 1000 {
		t.Errorf("Expected ner max_chars 1000, got %d", cfg.NER.MaxChars)
	}
	if cfg.MLflow.Experiment != "test-experiment" {
		t.Errorf("Expected experiment test-experiment, got %s", cfg.MLflow.Experiment)
	}
	if len(cfg.Pipeline.Skills) != 2 {
		t.Errorf("Expected 2 skills, got %d", len(cfg.Pipeline.Skills))
	}
	if cfg.Pipeline.PreviewChars != 100 {
		t.Errorf("Expected preview_chars 100, got %d", cfg.Pipeline.PreviewChars)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Store.MaxRuns != 50 {
		t.Errorf("Expected max_runs 50, got %d", cfg.Store.MaxRuns)
	}
	if len(cfg.Users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(cfg.Users))
	}
	if cfg.Users[0].Tenant != "testtenant" {
		t.Errorf("Expected tenant testtenant, got %s", cfg.Users[0].Tenant)
	}
}

func TestLoadDefaults(t *testing.T) {
	configContent := `
minio:
  endpoint: "localhost:9000"
ocr:
  api_url: "https://api.ocr.test"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 16 {
		t.Errorf("Expected default max_upload_mb 16, got %d", cfg.Server.MaxUploadMB)
	}
	if cfg.OCR.PollIntervalSeconds != 5 {
		t.Errorf("Expected default poll interval 5, got %d", cfg.OCR.PollIntervalSeconds)
	}
	if cfg.OCR.PollTimeoutSeconds != 300 {
		t.Errorf("Expected default poll timeout 300, got %d", cfg.OCR.PollTimeoutSeconds)
	}
	if cfg.NER.Language != "en" {
		t.Errorf("Expected default language en, got %s", cfg.NER.Language)
	}
	if cfg.NER.MaxChars != 4900 {
		t.Errorf("Expected default ner max_chars 4900, got %d", cfg.NER.MaxChars)
	}
	if len(cfg.Pipeline.Skills) == 0 {
		t.Error("Expected default skill vocabulary to be non-empty")
	}
	if len(cfg.Pipeline.ExcludeCategories) != 5 {
		t.Errorf("Expected 5 default exclude categories, got %d", len(cfg.Pipeline.ExcludeCategories))
	}
	if cfg.Pipeline.PreviewChars != 500 {
		t.Errorf("Expected default preview_chars 500, got %d", cfg.Pipeline.PreviewChars)
	}
	if cfg.Store.MaxRuns != 100 {
		t.Errorf("Expected default max_runs 100, got %d", cfg.Store.MaxRuns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	configContent := `
minio:
  access_key: "file-key"
  secret_key: "file-secret"
ocr:
  api_token: "file-token"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	t.Setenv("MINIO_ACCESS_KEY", "env-key")
	t.Setenv("OCR_API_TOKEN", "env-token")
	t.Setenv("MLFLOW_TRACKING_URI", "http://mlflow.env:5000")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Minio.AccessKey != "env-key" {
		t.Errorf("Expected env override env-key, got %s", cfg.Minio.AccessKey)
	}
	if cfg.Minio.SecretKey != "file-secret" {
		t.Errorf("Expected file value file-secret, got %s", cfg.Minio.SecretKey)
	}
	if cfg.OCR.APIToken != "env-token" {
		t.Errorf("Expected env override env-token, got %s", cfg.OCR.APIToken)
	}
	if cfg.MLflow.TrackingURL != "http://mlflow.env:5000" {
		t.Errorf("Expected env tracking URL, got %s", cfg.MLflow.TrackingURL)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "alice", Password: "pw1", Tenant: "t1"},
			{Username: "bob", Password: "pw2", Tenant: "t2"},
		},
	}

	user := cfg.FindUser("bob")
	if user == nil {
		t.Fatal("Expected to find user bob")
	}
	if user.Tenant != "t2" {
		t.Errorf("Expected tenant t2, got %s", user.Tenant)
	}

	if cfg.FindUser("carol") != nil {
		t.Error("Expected nil for unknown user")
	}
}
