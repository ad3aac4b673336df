package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/model"
	"github.com/waijian1/resume-parser-project/pkg/logger"
	"github.com/waijian1/resume-parser-project/pkg/metrics"
)

// Coordinator drives one end-to-end extraction: upload, OCR job
// submission, polling, block fetch, text extraction, skill matching,
// entity recognition, merge and telemetry. Collaborators are accessed
// through the ports in ports.go; no component calls another directly.
type Coordinator struct {
	store    ObjectStore
	ocr      OCRClient
	ner      NERClient
	recorder Recorder
	poller   *Poller
	metrics  *metrics.Metrics
	cfg      *config.PipelineConfig
	exclude  map[string]struct{}
}

// RunInput carries one uploaded document into the pipeline.
type RunInput struct {
	Filename    string
	Content     io.Reader
	Size        int64
	ContentType string
}

func NewCoordinator(
	store ObjectStore,
	ocr OCRClient,
	ner NERClient,
	recorder Recorder,
	poller *Poller,
	m *metrics.Metrics,
	cfg *config.PipelineConfig,
) *Coordinator {
	return &Coordinator{
		store:    store,
		ocr:      ocr,
		ner:      ner,
		recorder: recorder,
		poller:   poller,
		metrics:  m,
		cfg:      cfg,
		exclude:  ExclusionSet(cfg.ExcludeCategories),
	}
}

// Run executes the pipeline for one uploaded resume. Each step is a
// hard sequence point; abort-class failures carry the typed error kind
// for the step that failed. NER errors are downgraded to an empty
// entity list. The telemetry run is closed on every path.
func (c *Coordinator) Run(ctx context.Context, input RunInput) (*model.ExtractionResult, error) {
	start := time.Now()

	key := fmt.Sprintf("uploads/%s-%s", uuid.New().String(), sanitizeFilename(input.Filename))

	tel := c.startTelemetry(ctx, input.Filename)
	tel.param("source", "api_upload")
	tel.param("original_filename", input.Filename)
	tel.param("storage_key", key)
	tel.param("storage_bucket", c.store.Bucket())

	result, err := c.run(ctx, tel, input, key)
	if err != nil {
		tel.metric("status", 0)
		tel.close(false)
		c.metrics.RecordRun("pipeline", model.StatusFailed, time.Since(start))
		return nil, err
	}

	tel.close(true)
	c.metrics.RecordRun("pipeline", model.StatusCompleted, time.Since(start))
	return result, nil
}

func (c *Coordinator) run(ctx context.Context, tel *telemetry, input RunInput, key string) (*model.ExtractionResult, error) {
	// 1. Stage the document in the object store
	if err := c.store.Upload(ctx, key, input.Content, input.Size, input.ContentType); err != nil {
		logger.Error(ctx, "upload failed", "storage_key", key, "error", err)
		return nil, model.WrapError(model.ErrStorage, "upload document", err)
	}
	storagePath := c.store.ObjectPath(key)
	logger.Info(ctx, "document stored", "storage_path", storagePath)

	// 2. Submit the OCR job
	jobID, err := c.ocr.SubmitJob(ctx, c.store.Bucket(), key)
	if err != nil {
		logger.Error(ctx, "job submission failed", "storage_key", key, "error", err)
		return nil, model.WrapError(model.ErrJobSubmission, "submit job", err)
	}
	if jobID == "" {
		return nil, model.WrapError(model.ErrJobSubmission, "submit job", fmt.Errorf("no job id returned"))
	}
	tel.param("job_id", jobID)
	logger.Info(ctx, "job submitted", "job_id", jobID)

	// 3. Poll to a terminal state
	outcome, err := c.poller.Wait(ctx, jobID)
	c.metrics.RecordPollAttempts(outcome.Attempts)
	if err != nil {
		return nil, err
	}

	// 4. Fetch every result page
	blocks, err := c.fetchAllBlocks(ctx, jobID)
	if err != nil {
		logger.Error(ctx, "result fetch failed", "job_id", jobID, "error", err)
		return nil, err
	}

	// 5. Extract text and match; entity recognition is best-effort
	text, err := ExtractText(blocks)
	if err != nil {
		logger.Error(ctx, "block extraction failed", "job_id", jobID, "error", err)
		return nil, err
	}
	skills := MatchSkills(text, c.cfg.Skills)

	var entities []model.Entity
	if text != "" {
		entities, err = c.ner.DetectEntities(ctx, text)
		if err != nil {
			logger.Warn(ctx, "entity detection failed, continuing without entities", "job_id", jobID, "error", err)
			c.metrics.RecordCollaboratorError("pipeline", "ner")
			entities = nil
		}
	}

	// 6. Normalize and merge
	normalized := NormalizeEntities(entities, c.exclude)
	combined := MergeKeywords(skills, normalized)

	result := &model.ExtractionResult{
		StoragePath:      storagePath,
		JobID:            jobID,
		Text:             text,
		BlockCount:       len(blocks),
		MatchedSkills:    skills,
		Entities:         entities,
		CombinedKeywords: combined,
	}

	// 7. Record metrics and artifacts
	tel.metric("text_length_chars", float64(len(text)))
	tel.metric("block_count", float64(len(blocks)))
	tel.metric("skill_count", float64(len(skills)))
	tel.metric("entity_count", float64(len(entities)))
	tel.metric("combined_keyword_count", float64(len(combined)))
	tel.metric("status", 1)
	c.logArtifacts(ctx, tel, result)

	return result, nil
}

// fetchAllBlocks concatenates paginated block pages until no
// continuation token remains. Zero blocks overall is a fetch failure.
func (c *Coordinator) fetchAllBlocks(ctx context.Context, jobID string) ([]model.Block, error) {
	var all []model.Block
	nextToken := ""
	for {
		blocks, next, err := c.ocr.GetBlocks(ctx, jobID, nextToken)
		if err != nil {
			return nil, model.WrapError(model.ErrResultFetch, "fetch blocks", err)
		}
		all = append(all, blocks...)
		if next == "" {
			break
		}
		nextToken = next
	}
	if len(all) == 0 {
		return nil, model.WrapError(model.ErrResultFetch, "fetch blocks", fmt.Errorf("no blocks returned"))
	}
	return all, nil
}

// logArtifacts stages the two run artifacts in a temp directory and
// hands them to the recorder. The directory is removed on every path.
func (c *Coordinator) logArtifacts(ctx context.Context, tel *telemetry, result *model.ExtractionResult) {
	tmpDir, err := os.MkdirTemp("", "resume-run-*")
	if err != nil {
		logger.Warn(ctx, "artifact staging failed", "error", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	keywordsPath := filepath.Join(tmpDir, "combined_keywords.json")
	if data, err := json.MarshalIndent(result.CombinedKeywords, "", "    "); err == nil {
		if err := os.WriteFile(keywordsPath, data, 0o644); err == nil {
			tel.artifact(keywordsPath, "results")
		}
	}

	textPath := filepath.Join(tmpDir, "extracted_text.txt")
	if err := os.WriteFile(textPath, []byte(result.Text), 0o644); err == nil {
		tel.artifact(textPath, "results")
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename strips any path components and collapses characters
// outside a safe set, so uploaded names cannot shape storage keys.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	return name
}

// telemetry wraps the recorder for one run. Recording is best-effort:
// a tracking-server failure is logged and counted but never fails the
// pipeline.
type telemetry struct {
	ctx      context.Context
	recorder Recorder
	metrics  *metrics.Metrics
	runID    string
}

func (c *Coordinator) startTelemetry(ctx context.Context, filename string) *telemetry {
	tel := &telemetry{ctx: ctx, recorder: c.recorder, metrics: c.metrics}

	runID, err := c.recorder.StartRun(ctx, "api_upload_"+sanitizeFilename(filename))
	if err != nil {
		logger.Warn(ctx, "failed to start tracking run", "error", err)
		c.metrics.RecordCollaboratorError("pipeline", "tracking")
		return tel
	}
	tel.runID = runID
	logger.Info(ctx, "tracking run started", "tracking_run_id", runID)
	return tel
}

func (t *telemetry) param(key, value string) {
	if t.runID == "" {
		return
	}
	if err := t.recorder.LogParam(t.ctx, t.runID, key, value); err != nil {
		logger.Warn(t.ctx, "failed to log param", "key", key, "error", err)
		t.metrics.RecordCollaboratorError("pipeline", "tracking")
	}
}

func (t *telemetry) metric(key string, value float64) {
	if t.runID == "" {
		return
	}
	if err := t.recorder.LogMetric(t.ctx, t.runID, key, value); err != nil {
		logger.Warn(t.ctx, "failed to log metric", "key", key, "error", err)
		t.metrics.RecordCollaboratorError("pipeline", "tracking")
	}
}

func (t *telemetry) artifact(localPath, dir string) {
	if t.runID == "" {
		return
	}
	if err := t.recorder.LogArtifact(t.ctx, t.runID, localPath, dir); err != nil {
		logger.Warn(t.ctx, "failed to log artifact", "path", localPath, "error", err)
		t.metrics.RecordCollaboratorError("pipeline", "tracking")
	}
}

func (t *telemetry) close(success bool) {
	if t.runID == "" {
		return
	}
	if err := t.recorder.EndRun(t.ctx, t.runID, success); err != nil {
		logger.Warn(t.ctx, "failed to end tracking run", "error", err)
		t.metrics.RecordCollaboratorError("pipeline", "tracking")
	}
}
