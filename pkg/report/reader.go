// Package report handles the thin CSV edges of the pipeline: reading the
// input URL list and writing the per-URL outcome registry.
package report

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
)

// acceptedSchemes lists URL schemes accepted from the input file. ftp URLs
// survive input filtering; they classify as unknown later since no downloader
// variant speaks ftp.
var acceptedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
}

// ReadURLs scans every cell of the CSV file at path and returns, in order,
// each value that parses as an absolute URL with an accepted scheme and a host.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // rows may have varying cell counts
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing input CSV: %w", err)
	}

	var urls []string
	for _, row := range rows {
		for _, cell := range row {
			parsed, err := url.Parse(cell)
			if err != nil {
				continue
			}
			if acceptedSchemes[parsed.Scheme] && parsed.Host != "" {
				urls = append(urls, cell)
			}
		}
	}
	return urls, nil
}
