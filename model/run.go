package model

import (
	"time"
)

// Run represents one resume extraction run
type Run struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	Tenant      string            `json:"tenant"`
	StoragePath string            `json:"storage_path"`
	JobID       string            `json:"job_id,omitempty"`
	Status      string            `json:"status"` // pending, processing, completed, failed
	Result      *ExtractionResult `json:"result,omitempty"`
	ErrorMsg    string            `json:"error_msg,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Run status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ExtractionResult is the output aggregate of one pipeline invocation.
// It is built once per request and handed to the telemetry recorder.
type ExtractionResult struct {
	StoragePath      string   `json:"storage_path"`
	JobID            string   `json:"job_id"`
	Text             string   `json:"-"`
	BlockCount       int      `json:"-"`
	MatchedSkills    []string `json:"matched_skills"`
	Entities         []Entity `json:"entities"`
	CombinedKeywords []string `json:"combined_keywords"`
}

// Entity is a named entity returned by the NER collaborator
type Entity struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// BlockTypeLine tags OCR blocks carrying one detected line of text.
const BlockTypeLine = "LINE"

// Block is one unit of OCR output. Text is a pointer so a missing text
// field can be told apart from an empty string; a LINE block without
// text violates the OCR service contract.
type Block struct {
	BlockType string  `json:"block_type"`
	Text      *string `json:"text,omitempty"`
}
