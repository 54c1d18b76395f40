package service

import (
	"context"
	"log"
	"time"

	"crparser/internal/domain"
	"crparser/internal/extraction"
	"crparser/internal/metrics"
	"crparser/internal/port"
)

// JobRunnerConfig holds settings for processing queued jobs.
type JobRunnerConfig struct {
	WorkDir   string
	ChunkSize int
}

// JobRunner runs the document pipeline for a dequeued task, persists the
// outcome and notifies subscribers. Status store and notifier failures are
// logged and never change the job outcome.
type JobRunner struct {
	processor port.DocumentProcessor
	jobRepo   port.JobRepository
	notifier  port.Notifier
	metrics   *metrics.Metrics
	cfg       JobRunnerConfig
}

// NewJobRunner creates a JobRunner.
func NewJobRunner(
	processor port.DocumentProcessor,
	jobRepo port.JobRepository,
	notifier port.Notifier,
	m *metrics.Metrics,
	cfg JobRunnerConfig,
) *JobRunner {
	return &JobRunner{
		processor: processor,
		jobRepo:   jobRepo,
		notifier:  notifier,
		metrics:   m,
		cfg:       cfg,
	}
}

var _ TaskHandler = (*JobRunner)(nil)

// Handle processes task. The source document is removed when processing ends.
func (r *JobRunner) Handle(ctx context.Context, task Task) {
	start := time.Now()
	log.Printf("jobRunner.Handle: processing job %s", task.JobID)

	result, err := r.processor.Process(ctx, port.ProcessInput{
		Path:         task.Path,
		WorkDir:      r.cfg.WorkDir,
		WorkPrefix:   task.JobID.String(),
		RemoveSource: true,
	})

	// Terminal writes must land even if the job deadline has passed.
	finishCtx := context.WithoutCancel(ctx)
	if err != nil {
		r.fail(finishCtx, task, err, time.Since(start))
		return
	}

	for _, chunk := range extraction.Chunk(result.Tables, r.cfg.ChunkSize) {
		if err := r.jobRepo.SaveTables(finishCtx, task.JobID, chunk); err != nil {
			log.Printf("jobRunner.Handle: saving tables for job %s: %v", task.JobID, err)
		}
	}

	count := len(result.Tables)
	if err := r.jobRepo.PutStatus(finishCtx, domain.StatusUpdate{
		JobID:       task.JobID,
		Status:      domain.JobStatusDone,
		ResultCount: &count,
		Result:      result,
		Timestamp:   time.Now(),
	}); err != nil {
		log.Printf("jobRunner.Handle: updating status for job %s: %v", task.JobID, err)
	}

	took := time.Since(start)
	if r.metrics != nil {
		r.metrics.JobCompleted(domain.JobStatusDone, took, count)
	}
	if result.ExtractionFailed {
		log.Printf("jobRunner.Handle: job %s finished with degraded extraction: %s", task.JobID, result.ExtractionError)
	}
	log.Printf("jobRunner.Handle: job %s done (%d tables, %s)", task.JobID, count, took.Round(time.Millisecond))

	r.notify(finishCtx, domain.Notification{
		URL:    task.CallbackURL,
		JobID:  task.JobID,
		Status: domain.NotificationFinished,
	})
}

func (r *JobRunner) fail(ctx context.Context, task Task, cause error, took time.Duration) {
	log.Printf("jobRunner.Handle: job %s failed: %v", task.JobID, cause)

	if err := r.jobRepo.PutStatus(ctx, domain.StatusUpdate{
		JobID:        task.JobID,
		Status:       domain.JobStatusError,
		ErrorMessage: cause.Error(),
		Timestamp:    time.Now(),
	}); err != nil {
		log.Printf("jobRunner.Handle: updating status for job %s: %v", task.JobID, err)
	}
	if r.metrics != nil {
		r.metrics.JobCompleted(domain.JobStatusError, took, 0)
	}
	r.notify(ctx, domain.Notification{
		URL:    task.CallbackURL,
		JobID:  task.JobID,
		Status: domain.NotificationError,
		Error:  cause.Error(),
	})
}

func (r *JobRunner) notify(ctx context.Context, n domain.Notification) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		log.Printf("jobRunner.notify: job %s: %v", n.JobID, err)
	}
}
