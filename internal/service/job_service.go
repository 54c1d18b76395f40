package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"crparser/internal/config"
	"crparser/internal/domain"
	"crparser/internal/export"
	"crparser/internal/metrics"
	"crparser/internal/port"
)

// SubmitInput is the DTO for report submissions.
type SubmitInput struct {
	File        multipart.File
	Header      *multipart.FileHeader
	CallbackURL string
	SubmittedBy string
}

// Enqueuer accepts tasks for background processing.
type Enqueuer interface {
	Submit(task Task) error
}

// JobService defines the report ingestion contract.
type JobService interface {
	Submit(ctx context.Context, input SubmitInput) (*domain.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Tables(ctx context.Context, id uuid.UUID) ([]domain.ProcessedTable, error)
	Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error)
}

// ExportOutput is an encoded job export ready to be served.
type ExportOutput struct {
	FileName    string
	ContentType string
	Data        []byte
}

type jobService struct {
	jobRepo port.JobRepository
	storage port.ObjectStorage
	queue   Enqueuer
	metrics *metrics.Metrics
	s3Cfg   *config.S3Config
	cfg     *config.ExtractionConfig
}

// NewJobService creates a JobService. storage may be nil to skip the blob
// store backup.
func NewJobService(
	jobRepo port.JobRepository,
	storage port.ObjectStorage,
	queue Enqueuer,
	m *metrics.Metrics,
	s3Cfg *config.S3Config,
	cfg *config.ExtractionConfig,
) JobService {
	return &jobService{
		jobRepo: jobRepo,
		storage: storage,
		queue:   queue,
		metrics: m,
		s3Cfg:   s3Cfg,
		cfg:     cfg,
	}
}

func (s *jobService) Submit(ctx context.Context, input SubmitInput) (*domain.Job, error) {
	if input.File == nil || input.Header == nil {
		return nil, domain.ErrUnsupportedFileType
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if maxBytes > 0 && input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Read first 512 bytes for magic-byte content type detection
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	if _, ok := domain.AllowedContentTypes[http.DetectContentType(buf[:n])]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	jobID := uuid.New()
	fileName := jobID.String() + ".pdf"
	localPath, err := s.saveLocal(input.File, fileName)
	if err != nil {
		return nil, err
	}

	objectKey := s.s3Cfg.KeyPrefix + fileName
	log.Printf("jobService.Submit: job %s: %s (%d bytes) by %q",
		jobID, input.Header.Filename, input.Header.Size, input.SubmittedBy)

	if err := s.backup(ctx, localPath, objectKey, input.Header.Size); err != nil {
		log.Printf("jobService.Submit: backup failed for job %s: %v", jobID, err)
		s.removeLocal(localPath)
		return nil, domain.ErrUploadFailed
	}

	job := &domain.Job{
		ID:          jobID,
		Status:      domain.JobStatusProcessing,
		FileName:    input.Header.Filename,
		ObjectKey:   objectKey,
		CallbackURL: input.CallbackURL,
		SubmittedBy: input.SubmittedBy,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		log.Printf("jobService.Submit: recording job %s: %v", jobID, err)
	}

	err = s.queue.Submit(Task{JobID: jobID, Path: localPath, CallbackURL: input.CallbackURL})
	if errors.Is(err, domain.ErrQueueFull) {
		log.Printf("jobService.Submit: queue full, rejecting job %s", jobID)
		s.removeLocal(localPath)
		s.discardBackup(ctx, objectKey)
		if s.metrics != nil {
			s.metrics.JobRejected()
		}
		if perr := s.jobRepo.PutStatus(ctx, domain.StatusUpdate{
			JobID:        jobID,
			Status:       domain.JobStatusError,
			ErrorMessage: domain.ErrQueueFull.Error(),
			Timestamp:    time.Now(),
		}); perr != nil {
			log.Printf("jobService.Submit: updating status for job %s: %v", jobID, perr)
		}
		return nil, err
	}
	if err != nil {
		s.removeLocal(localPath)
		s.discardBackup(ctx, objectKey)
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}

	if s.metrics != nil {
		s.metrics.JobSubmitted()
	}
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *jobService) Tables(ctx context.Context, id uuid.UUID) ([]domain.ProcessedTable, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusDone {
		return nil, domain.ErrJobNotFinished
	}
	return s.jobRepo.ListTables(ctx, id)
}

func (s *jobService) Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error) {
	if format != domain.ExportFormatCSV && format != domain.ExportFormatXLSX {
		return nil, domain.ErrUnsupportedExport
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusDone {
		return nil, domain.ErrJobNotFinished
	}
	tables, err := s.jobRepo.ListTables(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{FileName: export.BuildFilename(job.FileName, format, time.Now())}
	var buf bytes.Buffer
	switch format {
	case domain.ExportFormatCSV:
		out.ContentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, tables)
	case domain.ExportFormatXLSX:
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		var header domain.ReportHeader
		if len(job.Header) > 0 {
			if jerr := json.Unmarshal(job.Header, &header); jerr != nil {
				log.Printf("jobService.Export: decoding header for job %s: %v", id, jerr)
			}
		}
		err = export.WriteXLSX(&buf, job, header, tables)
	}
	if err != nil {
		return nil, err
	}
	out.Data = buf.Bytes()
	return out, nil
}

func (s *jobService) saveLocal(src io.Reader, fileName string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, fileName)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		s.removeLocal(path)
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.removeLocal(path)
		return "", fmt.Errorf("saving upload: %w", err)
	}
	return path, nil
}

func (s *jobService) backup(ctx context.Context, path, key string, size int64) error {
	if s.storage == nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        f,
		ContentType: "application/pdf",
		Size:        size,
	})
	if err != nil {
		return err
	}
	log.Printf("jobService.backup: stored %s at %s", key, out.Location)
	return nil
}

// discardBackup removes the blob of a job that was never enqueued, so
// rejected submissions leave nothing behind in the bucket.
func (s *jobService) discardBackup(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), s.s3Cfg.Bucket, key); err != nil {
		log.Printf("jobService.discardBackup: deleting %s: %v", key, err)
	}
}

func (s *jobService) removeLocal(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("jobService: removing %s: %v", path, err)
	}
}
