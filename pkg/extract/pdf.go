package extract

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// PDFExtractor extracts page text and document information from PDF files.
type PDFExtractor struct {
	log *logrus.Entry
}

// NewPDFExtractor creates a PDFExtractor
func NewPDFExtractor(log *logrus.Entry) *PDFExtractor {
	return &PDFExtractor{log: log}
}

// Extract reads the PDF at rawPath, writes its concatenated page text to
// destPath, and reports page count, author, creation timestamp, and detected
// language.
func (e *PDFExtractor) Extract(ctx context.Context, rawPath, destPath string) (res *Result, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	// The pdf library panics on some malformed files; keep that inside the
	// extraction contract.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: PDF: %v", utils.ErrParsing, r)
		}
	}()

	f, reader, err := pdf.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening PDF: %v", utils.ErrParsing, err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: extracting PDF text: %v", utils.ErrParsing, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("%w: reading PDF text: %v", utils.ErrParsing, err)
	}
	text := buf.String()

	lang, err := DetectLanguage(text)
	if err != nil {
		return nil, err
	}

	if err := writeText(destPath, text); err != nil {
		return nil, err
	}

	pageCount := reader.NumPage()
	meta := models.Metadata{
		PageCount: &pageCount,
		Language:  lang,
	}
	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		if author := info.Key("Author"); author.Kind() == pdf.String {
			meta.Author = author.Text()
		}
		if created := info.Key("CreationDate"); created.Kind() == pdf.String {
			meta.CreatedAt = parsePDFDate(created.Text())
		}
	}

	e.log.WithFields(logrus.Fields{"path": rawPath, "pages": pageCount, "language": lang}).Debug("Extracted PDF")
	return &Result{Metadata: meta}, nil
}

// parsePDFDate converts a PDF date string (D:YYYYMMDDHHmmSS...) to the
// report's timestamp layout, returning the raw value when it does not parse.
func parsePDFDate(raw string) string {
	s := raw
	if len(s) >= 2 && s[:2] == "D:" {
		s = s[2:]
	}
	if len(s) > 14 {
		s = s[:14]
	}
	for _, layout := range []string{"20060102150405", "200601021504", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return raw
}
