package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// HTMLExtractor extracts visible text from saved markup pages. Pages carry no
// document properties; only the detected language is reported.
type HTMLExtractor struct {
	log *logrus.Entry
}

// NewHTMLExtractor creates an HTMLExtractor
func NewHTMLExtractor(log *logrus.Entry) *HTMLExtractor {
	return &HTMLExtractor{log: log}
}

// Extract parses the HTML at rawPath, strips non-content elements, writes the
// collapsed text to destPath, and reports the detected language.
func (e *HTMLExtractor) Extract(ctx context.Context, rawPath, destPath string) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	f, err := os.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening page: %v", utils.ErrFilesystem, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", utils.ErrParsing, err)
	}
	doc.Find("script, style, noscript").Remove()
	text := collapseWhitespace(doc.Text())

	lang, err := DetectLanguage(text)
	if err != nil {
		return nil, err
	}

	if err := writeText(destPath, text); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"path": rawPath, "language": lang}).Debug("Extracted HTML")
	return &Result{Metadata: models.Metadata{Language: lang}}, nil
}

// collapseWhitespace trims every line and drops empty ones, keeping one line
// per block of rendered text.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
