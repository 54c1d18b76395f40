package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"crparser/internal/domain"
	"crparser/internal/port"
)

// MockDocumentProcessor is a mock implementation of port.DocumentProcessor.
type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Process(ctx context.Context, input port.ProcessInput) (*domain.ProcessingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingResult), args.Error(1)
}
