package extraction_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crparser/internal/domain"
	"crparser/internal/extraction"
	"crparser/internal/port"
	"crparser/mocks"
)

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o600))
	return path
}

func summaryTable() extraction.ExtractedTable {
	return extraction.ExtractedTable{
		PageNumber: 1,
		Accuracy:   98.5,
		Rows: []domain.Row{
			{{Column: "0", Value: "DATA DI\nRIFERIMENTO"}, {Column: "1", Value: "IMPORTO"}},
			{{Column: "0", Value: "01/2025"}, {Column: "1", Value: "150.000"}},
		},
	}
}

type processorDeps struct {
	extractor   *mocks.MockTableExtractor
	orientation *mocks.MockOrientationDetector
	header      *mocks.MockHeaderSource
}

func newTestProcessor(opts ...extraction.Option) (*extraction.Processor, processorDeps) {
	deps := processorDeps{
		extractor:   new(mocks.MockTableExtractor),
		orientation: new(mocks.MockOrientationDetector),
		header:      new(mocks.MockHeaderSource),
	}
	opts = append([]extraction.Option{
		extraction.WithOrientationDetector(deps.orientation),
		extraction.WithHeaderSource(deps.header),
	}, opts...)
	return extraction.NewProcessor(deps.extractor, opts...), deps
}

func TestProcessor_Process_NotFound(t *testing.T) {
	p, deps := newTestProcessor()

	result, err := p.Process(context.Background(), port.ProcessInput{
		Path: filepath.Join(t.TempDir(), "missing.pdf"),
	})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	deps.extractor.AssertNotCalled(t, "ExtractTables", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_Process_SingleTable(t *testing.T) {
	p, deps := newTestProcessor()
	path := writeDocument(t)

	deps.orientation.On("DetectOrientation", mock.Anything, path).Return(extraction.OrientationResult{})
	deps.extractor.On("ExtractTables", mock.Anything, path, mock.Anything).
		Return(extraction.TableExtraction{Tables: []extraction.ExtractedTable{summaryTable()}})
	deps.header.On("FirstPageText", mock.Anything, path).
		Return("DATA DI RIFERIMENTO: 01/2025\nIntestatario: ACME SPA\n", nil)

	result, err := p.Process(context.Background(), port.ProcessInput{Path: path, WorkDir: t.TempDir(), WorkPrefix: "job"})

	require.NoError(t, err)
	require.Len(t, result.Tables, 1)
	table := result.Tables[0]
	assert.Equal(t, 0, table.TableIndex)
	assert.Equal(t, 1, table.PageNumber)
	assert.Equal(t, 98.5, table.ExtractionAccuracy)
	assert.Equal(t, "TRANSACTION_SUMMARY", table.RuleName)
	assert.False(t, result.ExtractionFailed)
	assert.Equal(t, "ACME SPA", result.Header.Company)
	assert.Equal(t, domain.DateMetadata{Month: "01", Year: "2025"}, result.Header.Period)

	raw, err := json.Marshal(table)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "table_index")
	assert.Contains(t, decoded, "page_number")
	assert.Contains(t, decoded, "extraction_accuracy")
	content, ok := decoded["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 2)
	assert.Equal(t, map[string]any{"0": "DATA DI RIFERIMENTO", "1": "IMPORTO"}, content[0])

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "source kept unless RemoveSource is set")
}

func TestProcessor_Process_Idempotent(t *testing.T) {
	p, deps := newTestProcessor()
	path := writeDocument(t)

	deps.orientation.On("DetectOrientation", mock.Anything, path).Return(extraction.OrientationResult{})
	deps.extractor.On("ExtractTables", mock.Anything, path, mock.Anything).
		Return(extraction.TableExtraction{Tables: []extraction.ExtractedTable{summaryTable()}})
	deps.header.On("FirstPageText", mock.Anything, path).Return("", nil)

	first, err := p.Process(context.Background(), port.ProcessInput{Path: path, WorkDir: t.TempDir()})
	require.NoError(t, err)
	second, err := p.Process(context.Background(), port.ProcessInput{Path: path, WorkDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcessor_Process_CleansWorkDirAndSource(t *testing.T) {
	p, deps := newTestProcessor()
	path := writeDocument(t)
	root := t.TempDir()

	var workDir string
	deps.orientation.On("DetectOrientation", mock.Anything, path).Return(extraction.OrientationResult{Landscape: true})
	deps.extractor.On("ExtractTables", mock.Anything, path, mock.MatchedBy(func(req extraction.ExtractRequest) bool {
		return req.Landscape
	})).
		Run(func(args mock.Arguments) {
			workDir = args.Get(2).(extraction.ExtractRequest).WorkDir
			require.NoError(t, os.WriteFile(filepath.Join(workDir, "page-1.png"), []byte("x"), 0o600))
		}).
		Return(extraction.TableExtraction{Tables: []extraction.ExtractedTable{}})
	deps.header.On("FirstPageText", mock.Anything, path).Return("", nil)

	result, err := p.Process(context.Background(), port.ProcessInput{
		Path:         path,
		WorkDir:      root,
		WorkPrefix:   "job-42",
		RemoveSource: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Landscape)
	assert.NotNil(t, result.Tables)
	assert.Empty(t, result.Tables)

	assert.Equal(t, root, filepath.Dir(workDir))
	assert.Contains(t, filepath.Base(workDir), "job-42-")
	_, err = os.Stat(workDir)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestProcessor_Process_DegradedSteps(t *testing.T) {
	p, deps := newTestProcessor()
	path := writeDocument(t)

	deps.orientation.On("DetectOrientation", mock.Anything, path).
		Return(extraction.OrientationResult{Degraded: true, Err: errors.New("corrupt xref")})
	deps.extractor.On("ExtractTables", mock.Anything, path, mock.Anything).
		Return(extraction.TableExtraction{Tables: []extraction.ExtractedTable{}, Failed: true, Err: errors.New("render failed")})
	deps.header.On("FirstPageText", mock.Anything, path).Return("", errors.New("unreadable"))

	result, err := p.Process(context.Background(), port.ProcessInput{Path: path, WorkDir: t.TempDir()})

	require.NoError(t, err)
	assert.False(t, result.Landscape)
	assert.True(t, result.OrientationDegraded)
	assert.True(t, result.ExtractionFailed)
	assert.Equal(t, "render failed", result.ExtractionError)
	assert.Empty(t, result.Tables)
	assert.Equal(t, "None", result.Header.Period.Year)
}

func TestProcessor_ProcessDocument_ReturnsTables(t *testing.T) {
	p, deps := newTestProcessor(extraction.WithWorkDir(t.TempDir()), extraction.WithClassifier(nil))
	path := writeDocument(t)

	deps.orientation.On("DetectOrientation", mock.Anything, path).Return(extraction.OrientationResult{})
	deps.extractor.On("ExtractTables", mock.Anything, path, mock.Anything).
		Return(extraction.TableExtraction{Tables: []extraction.ExtractedTable{summaryTable(), summaryTable()}})
	deps.header.On("FirstPageText", mock.Anything, path).Return("", nil)

	tables, err := p.ProcessDocument(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 0, tables[0].TableIndex)
	assert.Equal(t, 1, tables[1].TableIndex)
	assert.Empty(t, tables[1].RuleName)
}
