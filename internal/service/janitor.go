package service

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"crparser/internal/domain"
	"crparser/internal/port"
)

// staleReason is recorded on jobs the janitor gives up on.
const staleReason = "processing did not complete"

// JanitorConfig holds settings for the cleanup janitor.
type JanitorConfig struct {
	Schedule   string
	Dirs       []string
	MaxFileAge time.Duration
	StaleAfter time.Duration
}

// SweepReport summarizes one janitor pass.
type SweepReport struct {
	FilesRemoved int
	JobsFailed   int
}

// Janitor periodically removes orphaned uploads and work directories and
// fails jobs stuck in PROCESSING, e.g. after a crash. Failed jobs get the
// same error notification a runner failure would send.
type Janitor struct {
	cron     *cron.Cron
	jobRepo  port.JobRepository
	notifier port.Notifier
	cfg      JanitorConfig
	now      func() time.Time
}

// NewJanitor creates a Janitor. Call Start to schedule it.
// StaleAfter must exceed the longest time a job can sit queued plus run;
// config.Validate enforces that bound.
func NewJanitor(jobRepo port.JobRepository, notifier port.Notifier, cfg JanitorConfig) *Janitor {
	return &Janitor{
		cron:     cron.New(),
		jobRepo:  jobRepo,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start schedules the sweep and runs one immediately.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.Schedule, j.runScheduled); err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("janitor: started (schedule=%q, dirs=%v)", j.cfg.Schedule, j.cfg.Dirs)
	go j.runScheduled()
	return nil
}

// Stop halts scheduling and returns a context done when running sweeps finish.
func (j *Janitor) Stop() context.Context {
	log.Printf("janitor: stopping")
	return j.cron.Stop()
}

func (j *Janitor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report := j.Sweep(ctx)
	if report.FilesRemoved > 0 || report.JobsFailed > 0 {
		log.Printf("janitor: removed %d files, failed %d stale jobs", report.FilesRemoved, report.JobsFailed)
	}
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	cutoff := j.now().Add(-j.cfg.MaxFileAge)

	seen := make(map[string]bool)
	for _, dir := range j.cfg.Dirs {
		if dir == "" || seen[filepath.Clean(dir)] {
			continue
		}
		seen[filepath.Clean(dir)] = true
		report.FilesRemoved += removeOlderThan(dir, cutoff)
	}

	if j.jobRepo != nil && j.cfg.StaleAfter > 0 {
		failed, err := j.jobRepo.FailStale(ctx, j.now().Add(-j.cfg.StaleAfter), staleReason)
		if err != nil {
			log.Printf("janitor.Sweep: failing stale jobs: %v", err)
		}
		report.JobsFailed = len(failed)
		for _, job := range failed {
			j.notify(ctx, job)
		}
	}
	return report
}

func (j *Janitor) notify(ctx context.Context, job domain.Job) {
	if j.notifier == nil {
		return
	}
	n := domain.Notification{
		URL:    job.CallbackURL,
		JobID:  job.ID,
		Status: domain.NotificationError,
		Error:  staleReason,
	}
	if err := j.notifier.Notify(ctx, n); err != nil {
		log.Printf("janitor.notify: job %s: %v", job.ID, err)
	}
}

func removeOlderThan(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("janitor.Sweep: reading %s: %v", dir, err)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("janitor.Sweep: removing %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
