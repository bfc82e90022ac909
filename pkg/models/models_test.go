package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("https://example.com/report.pdf")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "https://example.com/report.pdf", rec.SourceURL)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.Empty(t, rec.FinalURL)
	assert.Empty(t, rec.ProcessedPath)
	assert.True(t, rec.FetchedAt.IsZero())

	other := NewRecord("https://example.com/report.pdf")
	assert.NotEqual(t, rec.ID, other.ID, "record IDs must be unique")
}

func TestRecord_SuccessPath(t *testing.T) {
	rec := NewRecord("https://example.com/report.pdf")
	rec.MarkClassified(KindDocument, ".pdf")
	rec.MarkFetched("https://cdn.example.com/report.pdf", "raw/documents/x.pdf", 1234)

	require.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "https://cdn.example.com/report.pdf", rec.FinalURL)
	assert.Equal(t, int64(1234), rec.SizeBytes)
	assert.False(t, rec.FetchedAt.IsZero())

	pages := 3
	rec.MarkExtracted("processed/documents/x.txt", Metadata{PageCount: &pages, Language: "en"})
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, "processed/documents/x.txt", rec.ProcessedPath)
	assert.Equal(t, 3, *rec.Metadata.PageCount)
}

func TestRecord_FailureStatesCarryCause(t *testing.T) {
	rec := NewRecord("https://example.com/a")
	rec.MarkDownloadFailed("connection refused")
	assert.Equal(t, StatusFailedDownload, rec.Status)
	assert.Equal(t, "connection refused", rec.ErrorMessage)

	rec = NewRecord("https://example.com/b")
	rec.MarkProcessingFailed("")
	assert.Equal(t, StatusFailedProcessing, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage, "failure status must always carry a cause")
}

func TestRecord_SkippedRobotsIsNotAFailure(t *testing.T) {
	rec := NewRecord("https://example.com/private")
	rec.MarkSkippedRobots()

	assert.Equal(t, StatusSkippedRobots, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.Empty(t, rec.ProcessedPath)
}

func TestRecord_TerminalStatusRefusesTransitions(t *testing.T) {
	rec := NewRecord("https://example.com/a")
	rec.MarkDownloadFailed("timeout")

	rec.MarkFetched("https://example.com/a", "raw/a.pdf", 10)
	assert.Empty(t, rec.FinalURL, "terminal record accepted a fetch result")

	rec.MarkExtracted("processed/a.txt", Metadata{Language: "en"})
	assert.Empty(t, rec.ProcessedPath, "terminal record accepted an extraction result")

	rec.MarkSkippedRobots()
	assert.Equal(t, StatusFailedDownload, rec.Status, "terminal status was overwritten")

	rec.MarkProcessingFailed("other")
	assert.Equal(t, StatusFailedDownload, rec.Status)
	assert.Equal(t, "timeout", rec.ErrorMessage)
}
