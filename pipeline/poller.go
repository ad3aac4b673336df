package pipeline

import (
	"context"
	"time"

	"github.com/waijian1/resume-parser-project/model"
	"github.com/waijian1/resume-parser-project/pkg/logger"
	"github.com/waijian1/resume-parser-project/service"
)

// PollState is the terminal observation of one polling loop.
type PollState string

const (
	PollSucceeded PollState = "succeeded"
	PollFailed    PollState = "failed"
	PollPartial   PollState = "partial"
	PollTimedOut  PollState = "timed_out"
)

// PollOutcome reports how a polling loop ended and how many status
// queries it took.
type PollOutcome struct {
	State    PollState
	Attempts int
}

// Success reports whether the job reached the succeeded status.
func (o PollOutcome) Success() bool {
	return o.State == PollSucceeded
}

// Poller drives one OCR job to a terminal state. Once a terminal
// status is observed the job is never polled again.
type Poller struct {
	ocr      OCRClient
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(ocr OCRClient, interval, timeout time.Duration) *Poller {
	return &Poller{
		ocr:      ocr,
		interval: interval,
		timeout:  timeout,
	}
}

// Wait polls the job status until it is terminal or the timeout
// elapses. A status-query error ends the loop as a failure; the loop's
// own repetition is the only retry mechanism. The wait between polls
// is a cancellable timer, so a client disconnect stops polling
// promptly.
func (p *Poller) Wait(ctx context.Context, jobID string) (PollOutcome, error) {
	deadline := time.Now().Add(p.timeout)
	attempts := 0

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return PollOutcome{State: PollFailed, Attempts: attempts},
				model.WrapError(model.ErrJobFailed, "poll job "+jobID, err)
		}

		attempts++
		status, err := p.ocr.GetJobStatus(ctx, jobID)
		if err != nil {
			logger.Error(ctx, "job status query failed", "job_id", jobID, "attempt", attempts, "error", err)
			return PollOutcome{State: PollFailed, Attempts: attempts},
				model.WrapError(model.ErrJobFailed, "poll job "+jobID, err)
		}

		logger.Debug(ctx, "job status observed", "job_id", jobID, "status", status, "attempt", attempts)

		switch status {
		case service.JobStatusSucceeded:
			return PollOutcome{State: PollSucceeded, Attempts: attempts}, nil
		case service.JobStatusFailed:
			return PollOutcome{State: PollFailed, Attempts: attempts},
				model.WrapError(model.ErrJobFailed, "job "+jobID+" reported failed", nil)
		case service.JobStatusPartial:
			return PollOutcome{State: PollPartial, Attempts: attempts},
				model.WrapError(model.ErrJobFailed, "job "+jobID+" reported partial success", nil)
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollOutcome{State: PollFailed, Attempts: attempts},
				model.WrapError(model.ErrJobFailed, "poll job "+jobID, ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error(ctx, "job polling timed out", "job_id", jobID, "attempts", attempts)
	return PollOutcome{State: PollTimedOut, Attempts: attempts},
		model.WrapError(model.ErrJobFailed, "job "+jobID+" timed out", nil)
}
