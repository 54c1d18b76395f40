package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"crparser/internal/extraction"
)

// MockTableExtractor is a mock implementation of extraction.TableExtractor.
type MockTableExtractor struct {
	mock.Mock
}

func (m *MockTableExtractor) ExtractTables(ctx context.Context, path string, req extraction.ExtractRequest) extraction.TableExtraction {
	args := m.Called(ctx, path, req)
	return args.Get(0).(extraction.TableExtraction)
}

// MockOrientationDetector is a mock implementation of extraction.OrientationDetector.
type MockOrientationDetector struct {
	mock.Mock
}

func (m *MockOrientationDetector) DetectOrientation(ctx context.Context, path string) extraction.OrientationResult {
	args := m.Called(ctx, path)
	return args.Get(0).(extraction.OrientationResult)
}

// MockHeaderSource is a mock implementation of extraction.HeaderSource.
type MockHeaderSource struct {
	mock.Mock
}

func (m *MockHeaderSource) FirstPageText(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}
