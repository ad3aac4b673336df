package pipeline

import (
	"context"
	"io"

	"github.com/waijian1/resume-parser-project/model"
)

// ObjectStore persists uploaded documents.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Bucket() string
	ObjectPath(objectName string) string
}

// OCRClient drives the asynchronous text-detection collaborator.
type OCRClient interface {
	SubmitJob(ctx context.Context, bucket, key string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (string, error)
	GetBlocks(ctx context.Context, jobID, nextToken string) ([]model.Block, string, error)
}

// NERClient detects named entities in extracted text.
type NERClient interface {
	DetectEntities(ctx context.Context, text string) ([]model.Entity, error)
}

// Recorder tracks pipeline runs in the experiment-tracking
// collaborator. One recorder run spans one pipeline invocation.
type Recorder interface {
	StartRun(ctx context.Context, name string) (string, error)
	LogParam(ctx context.Context, runID, key, value string) error
	LogMetric(ctx context.Context, runID, key string, value float64) error
	LogArtifact(ctx context.Context, runID, localPath, artifactDir string) error
	EndRun(ctx context.Context, runID string, success bool) error
}
