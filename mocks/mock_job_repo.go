package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"crparser/internal/domain"
)

// MockJobRepo is a mock implementation of port.JobRepository.
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepo) PutStatus(ctx context.Context, update domain.StatusUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepo) SaveTables(ctx context.Context, jobID uuid.UUID, tables []domain.ProcessedTable) error {
	args := m.Called(ctx, jobID, tables)
	return args.Error(0)
}

func (m *MockJobRepo) ListTables(ctx context.Context, jobID uuid.UUID) ([]domain.ProcessedTable, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessedTable), args.Error(1)
}

func (m *MockJobRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) ([]domain.Job, error) {
	args := m.Called(ctx, cutoff, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}
