package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrQueueFull           = errors.New("processing queue is full")
	ErrJobNotFinished      = errors.New("job has not finished processing")
	ErrUnsupportedExport   = errors.New("unsupported export format")
)
