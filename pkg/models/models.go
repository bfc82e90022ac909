package models

import (
	"time"

	"github.com/google/uuid"
)

// Metadata holds the per-format metadata bag produced by extraction.
// All fields are optional; which ones are populated depends on the format.
type Metadata struct {
	PageCount *int   `yaml:"page_count,omitempty"`
	Author    string `yaml:"author,omitempty"`
	CreatedAt string `yaml:"created_at,omitempty"`
	Language  string `yaml:"language,omitempty"`
}

// Record tracks one input URL through classification, fetch, and extraction.
// A record belongs to exactly one worker goroutine; it is never mutated
// concurrently. The Mark* methods are the only legal mutation path and refuse
// to overwrite a terminal status.
type Record struct {
	ID            string
	SourceURL     string
	FinalURL      string
	Status        Status
	ErrorMessage  string
	Kind          Kind
	Ext           string // resolved extension incl. dot, e.g. ".pdf"
	RawPath       string
	ProcessedPath string
	SizeBytes     int64
	FetchedAt     time.Time
	Metadata      Metadata
}

// NewRecord creates a record for a normalized source URL with a fresh ID and
// the optimistic initial status.
func NewRecord(sourceURL string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		Status:    StatusSuccess,
	}
}

// MarkClassified records the classification decision. Classification never
// changes status by itself; an unknown kind is handled by the caller.
func (r *Record) MarkClassified(kind Kind, ext string) {
	if r.Status.IsTerminal() {
		return
	}
	r.Kind = kind
	r.Ext = ext
}

// MarkFetched records a successful fetch: the post-redirect URL, the raw
// artifact location and size. Status remains success.
func (r *Record) MarkFetched(finalURL, rawPath string, sizeBytes int64) {
	if r.Status.IsTerminal() {
		return
	}
	r.FinalURL = finalURL
	r.RawPath = rawPath
	r.SizeBytes = sizeBytes
	r.FetchedAt = time.Now()
}

// MarkDownloadFailed moves the record to the terminal failed_download state.
func (r *Record) MarkDownloadFailed(cause string) {
	if r.Status.IsTerminal() {
		return
	}
	if cause == "" {
		cause = "download failed"
	}
	r.Status = StatusFailedDownload
	r.ErrorMessage = cause
}

// MarkSkippedRobots moves the record to the terminal skipped_robots state.
// This is a deliberate outcome, not a failure: no error message is set.
func (r *Record) MarkSkippedRobots() {
	if r.Status.IsTerminal() {
		return
	}
	r.Status = StatusSkippedRobots
}

// MarkProcessingFailed moves the record to the terminal failed_processing state.
func (r *Record) MarkProcessingFailed(cause string) {
	if r.Status.IsTerminal() {
		return
	}
	if cause == "" {
		cause = "processing failed"
	}
	r.Status = StatusFailedProcessing
	r.ErrorMessage = cause
}

// MarkExtracted records a successful extraction: the processed artifact and
// the format-appropriate metadata subset. Status remains success.
func (r *Record) MarkExtracted(processedPath string, meta Metadata) {
	if r.Status.IsTerminal() {
		return
	}
	r.ProcessedPath = processedPath
	r.Metadata = meta
}
