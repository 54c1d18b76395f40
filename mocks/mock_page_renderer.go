package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPageRenderer is a mock implementation of port.PageRenderer.
type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) RenderPage(ctx context.Context, documentPath string, page int, outDir string) (string, error) {
	args := m.Called(ctx, documentPath, page, outDir)
	return args.String(0), args.Error(1)
}
