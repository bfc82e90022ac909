package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"doc-harvester/pkg/models"
)

// header defines the column order of the outcome registry.
var header = []string{
	"id",
	"source_url",
	"final_url",
	"download_timestamp",
	"download_status",
	"error_message",
	"content_type_detected",
	"raw_file_path",
	"processed_file_path",
	"file_size_bytes",
	"document_page_count",
	"detected_language",
	"metadata_author",
	"metadata_creation_date",
}

// WriteReport writes one flattened row per record to a CSV file at path.
// When records is empty no file is produced at all.
func WriteReport(path string, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}

// recordRow flattens a record into the header's column order.
func recordRow(rec *models.Record) []string {
	var timestamp, sizeBytes, pageCount string
	if !rec.FetchedAt.IsZero() {
		timestamp = rec.FetchedAt.Format("2006-01-02 15:04:05")
		sizeBytes = strconv.FormatInt(rec.SizeBytes, 10)
	}
	if rec.Metadata.PageCount != nil {
		pageCount = strconv.Itoa(*rec.Metadata.PageCount)
	}
	var kind string
	if rec.Kind == models.KindPage || rec.Kind == models.KindDocument {
		kind = string(rec.Kind)
	}
	return []string{
		rec.ID,
		rec.SourceURL,
		rec.FinalURL,
		timestamp,
		string(rec.Status),
		rec.ErrorMessage,
		kind,
		rec.RawPath,
		rec.ProcessedPath,
		sizeBytes,
		pageCount,
		rec.Metadata.Language,
		rec.Metadata.Author,
		rec.Metadata.CreatedAt,
	}
}
