package port

import (
	"context"

	"crparser/internal/domain"
)

// ProcessInput names the document to process and where the pipeline may
// write temporary artifacts. WorkPrefix must be unique per job.
type ProcessInput struct {
	Path         string
	WorkDir      string
	WorkPrefix   string
	RemoveSource bool
}

// DocumentProcessor runs the extraction pipeline over one document.
type DocumentProcessor interface {
	Process(ctx context.Context, input ProcessInput) (*domain.ProcessingResult, error)
}
