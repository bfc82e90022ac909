package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// DocxExtractor extracts paragraph text and core properties from DOCX files.
// A DOCX is a zip archive of well-known XML parts, read with the standard
// library; no maintained read-oriented DOCX library exists in the ecosystem.
type DocxExtractor struct {
	log *logrus.Entry
}

// NewDocxExtractor creates a DocxExtractor
func NewDocxExtractor(log *logrus.Entry) *DocxExtractor {
	return &DocxExtractor{log: log}
}

// coreProperties mirrors docProps/core.xml
type coreProperties struct {
	Creator string `xml:"creator"`
	Created string `xml:"created"`
}

// appProperties mirrors docProps/app.xml
type appProperties struct {
	Pages int `xml:"Pages"`
}

// Extract reads the DOCX at rawPath, writes its paragraph text to destPath,
// and reports page count, author, creation timestamp, and detected language.
func (e *DocxExtractor) Extract(ctx context.Context, rawPath, destPath string) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	archive, err := zip.OpenReader(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening DOCX archive: %v", utils.ErrParsing, err)
	}
	defer archive.Close()

	text, paragraphCount, err := e.documentText(&archive.Reader)
	if err != nil {
		return nil, err
	}

	lang, err := DetectLanguage(text)
	if err != nil {
		return nil, err
	}

	if err := writeText(destPath, text); err != nil {
		return nil, err
	}

	// Page count from app.xml when the producer recorded it; paragraph count
	// as a rough stand-in otherwise.
	pageCount := paragraphCount
	var app appProperties
	if err := unmarshalPart(&archive.Reader, "docProps/app.xml", &app); err == nil && app.Pages > 0 {
		pageCount = app.Pages
	}

	meta := models.Metadata{
		PageCount: &pageCount,
		Language:  lang,
	}
	var core coreProperties
	if err := unmarshalPart(&archive.Reader, "docProps/core.xml", &core); err == nil {
		meta.Author = core.Creator
		meta.CreatedAt = formatISODate(core.Created)
	}

	e.log.WithFields(logrus.Fields{"path": rawPath, "pages": pageCount, "language": lang}).Debug("Extracted DOCX")
	return &Result{Metadata: meta}, nil
}

// documentText pulls the running text out of word/document.xml: the character
// data of every w:t element, one line per w:p paragraph.
func (e *DocxExtractor) documentText(archive *zip.Reader) (string, int, error) {
	part, err := openPart(archive, "word/document.xml")
	if err != nil {
		return "", 0, fmt.Errorf("%w: DOCX has no word/document.xml: %v", utils.ErrParsing, err)
	}
	defer part.Close()

	var b strings.Builder
	paragraphs := 0
	decoder := xml.NewDecoder(part)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("%w: decoding word/document.xml: %v", utils.ErrParsing, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var s string
				if err := decoder.DecodeElement(&s, &el); err != nil {
					return "", 0, fmt.Errorf("%w: decoding text run: %v", utils.ErrParsing, err)
				}
				b.WriteString(s)
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				paragraphs++
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), paragraphs, nil
}

// openPart opens a named file inside the archive.
func openPart(archive *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range archive.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("part %q not found", name)
}

// unmarshalPart decodes a named XML part into v.
func unmarshalPart(archive *zip.Reader, name string, v interface{}) error {
	part, err := openPart(archive, name)
	if err != nil {
		return err
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// formatISODate normalizes an ISO-8601 timestamp to the report layout,
// returning the raw value when it does not parse.
func formatISODate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return raw
}
