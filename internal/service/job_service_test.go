package service_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crparser/internal/config"
	"crparser/internal/domain"
	"crparser/internal/port"
	"crparser/internal/service"
	"crparser/mocks"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << >>\n%%EOF\n")

type fakeQueue struct {
	tasks []service.Task
	err   error
}

func (q *fakeQueue) Submit(task service.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func multipartFile(t *testing.T, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/cr_parse", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	f, fh, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, fh
}

type jobServiceFixture struct {
	repo    *mocks.MockJobRepo
	storage *mocks.MockObjectStorage
	queue   *fakeQueue
	svc     service.JobService
	dir     string
}

func newJobServiceFixture(t *testing.T) *jobServiceFixture {
	f := &jobServiceFixture{
		repo:    new(mocks.MockJobRepo),
		storage: new(mocks.MockObjectStorage),
		queue:   &fakeQueue{},
		dir:     t.TempDir(),
	}
	f.svc = service.NewJobService(f.repo, f.storage, f.queue, nil,
		&config.S3Config{Bucket: "cr-backup", KeyPrefix: "reports/"},
		&config.ExtractionConfig{UploadDir: f.dir, MaxFileSizeMB: 1},
	)
	return f
}

func TestJobService_Submit_Success(t *testing.T) {
	f := newJobServiceFixture(t)
	file, header := multipartFile(t, "report.pdf", samplePDF)

	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "cr-backup" && in.ContentType == "application/pdf"
	})).Return(&port.UploadOutput{Location: "s3://cr-backup/x"}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).Return(nil)

	job, err := f.svc.Submit(context.Background(), service.SubmitInput{
		File: file, Header: header, CallbackURL: "http://hook", SubmittedBy: "alice",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, "report.pdf", job.FileName)
	assert.Equal(t, "reports/"+job.ID.String()+".pdf", job.ObjectKey)
	require.Len(t, f.queue.tasks, 1)
	task := f.queue.tasks[0]
	assert.Equal(t, job.ID, task.JobID)
	assert.Equal(t, "http://hook", task.CallbackURL)
	assert.Equal(t, filepath.Join(f.dir, job.ID.String()+".pdf"), task.Path)

	saved, err := os.ReadFile(task.Path)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, saved)
	f.storage.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestJobService_Submit_RejectsNonPDFExtension(t *testing.T) {
	f := newJobServiceFixture(t)
	file, header := multipartFile(t, "report.txt", samplePDF)

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	assert.Empty(t, f.queue.tasks)
}

func TestJobService_Submit_RejectsBadMagicBytes(t *testing.T) {
	f := newJobServiceFixture(t)
	file, header := multipartFile(t, "report.pdf", []byte("just some text"))

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestJobService_Submit_TooLarge(t *testing.T) {
	f := newJobServiceFixture(t)
	big := append(append([]byte{}, samplePDF...), make([]byte, 2<<20)...)
	file, header := multipartFile(t, "report.pdf", big)

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestJobService_Submit_UploadFailure(t *testing.T) {
	f := newJobServiceFixture(t)
	file, header := multipartFile(t, "report.pdf", samplePDF)

	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down"))

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	assert.Empty(t, f.queue.tasks)
	entries, _ := os.ReadDir(f.dir)
	assert.Empty(t, entries, "local copy removed")
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestJobService_Submit_QueueFull(t *testing.T) {
	f := newJobServiceFixture(t)
	f.queue.err = domain.ErrQueueFull
	file, header := multipartFile(t, "report.pdf", samplePDF)

	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("PutStatus", mock.Anything, mock.MatchedBy(func(u domain.StatusUpdate) bool {
		return u.Status == domain.JobStatusError
	})).Return(nil)
	f.storage.On("Delete", mock.Anything, "cr-backup", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "reports/") && strings.HasSuffix(key, ".pdf")
	})).Return(nil)

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrQueueFull)
	entries, _ := os.ReadDir(f.dir)
	assert.Empty(t, entries)
	f.repo.AssertExpectations(t)
	f.storage.AssertExpectations(t)
}

func TestJobService_Submit_QueueFullBackupDeleteFailureIsNotFatal(t *testing.T) {
	f := newJobServiceFixture(t)
	f.queue.err = domain.ErrQueueFull
	file, header := multipartFile(t, "report.pdf", samplePDF)

	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.storage.On("Delete", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("PutStatus", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	assert.ErrorIs(t, err, domain.ErrQueueFull)
	f.storage.AssertCalled(t, "Delete", mock.Anything, "cr-backup", mock.Anything)
}

func TestJobService_Submit_StatusStoreFailureIsNotFatal(t *testing.T) {
	f := newJobServiceFixture(t)
	file, header := multipartFile(t, "report.pdf", samplePDF)

	f.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	job, err := f.svc.Submit(context.Background(), service.SubmitInput{File: file, Header: header})

	require.NoError(t, err)
	assert.NotNil(t, job)
	assert.Len(t, f.queue.tasks, 1)
}

func TestJobService_Tables_RequiresDone(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()

	f.repo.On("GetByID", mock.Anything, id).Return(&domain.Job{ID: id, Status: domain.JobStatusProcessing}, nil)

	_, err := f.svc.Tables(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrJobNotFinished)
}

func TestJobService_Tables_Done(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()
	tables := []domain.ProcessedTable{{TableIndex: 0, PageNumber: 1}}

	f.repo.On("GetByID", mock.Anything, id).Return(&domain.Job{ID: id, Status: domain.JobStatusDone}, nil)
	f.repo.On("ListTables", mock.Anything, id).Return(tables, nil)

	got, err := f.svc.Tables(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, tables, got)
}

func TestJobService_Get_NotFound(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()

	f.repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrJobNotFound)

	_, err := f.svc.Get(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobService_Export_CSV(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).
		Return(&domain.Job{ID: id, Status: domain.JobStatusDone, FileName: "cr.pdf"}, nil)
	f.repo.On("ListTables", mock.Anything, id).Return([]domain.ProcessedTable{
		{TableIndex: 0, PageNumber: 1, Content: []domain.Row{{{Column: "0", Value: "x"}}}},
	}, nil)

	out, err := f.svc.Export(context.Background(), id, domain.ExportFormatCSV)

	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
	assert.Contains(t, out.FileName, "cr_")
	assert.Contains(t, string(out.Data), "0,1,,0,0,x")
}

func TestJobService_Export_XLSXWithHeader(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).Return(&domain.Job{
		ID: id, Status: domain.JobStatusDone, FileName: "cr.pdf",
		Header: []byte(`{"company":"ACME SPA","period":{"year":"2025","month":"03"}}`),
	}, nil)
	f.repo.On("ListTables", mock.Anything, id).Return([]domain.ProcessedTable{}, nil)

	out, err := f.svc.Export(context.Background(), id, domain.ExportFormatXLSX)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("PK")))
	assert.Contains(t, out.FileName, ".xlsx")
}

func TestJobService_Export_UnsupportedFormat(t *testing.T) {
	f := newJobServiceFixture(t)

	_, err := f.svc.Export(context.Background(), uuid.New(), domain.ExportFormat("pdf"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedExport)
	f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestJobService_Export_RequiresDone(t *testing.T) {
	f := newJobServiceFixture(t)
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).Return(&domain.Job{ID: id, Status: domain.JobStatusProcessing}, nil)

	_, err := f.svc.Export(context.Background(), id, domain.ExportFormatCSV)

	assert.ErrorIs(t, err, domain.ErrJobNotFinished)
}
