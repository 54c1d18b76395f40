package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crparser/internal/domain"
)

// JobRepository is the status store keyed by request id.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	PutStatus(ctx context.Context, update domain.StatusUpdate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	SaveTables(ctx context.Context, jobID uuid.UUID, tables []domain.ProcessedTable) error
	ListTables(ctx context.Context, jobID uuid.UUID) ([]domain.ProcessedTable, error)
	// FailStale marks jobs still PROCESSING since before cutoff as ERROR and
	// returns them with ID, Status, CallbackURL and ErrorMessage populated.
	FailStale(ctx context.Context, cutoff time.Time, reason string) ([]domain.Job, error)
}
