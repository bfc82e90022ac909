package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// XLSXExtractor extracts cell text and document properties from XLSX
// workbooks. Spreadsheets are not paginated, so no page count is reported.
type XLSXExtractor struct {
	log *logrus.Entry
}

// NewXLSXExtractor creates an XLSXExtractor
func NewXLSXExtractor(log *logrus.Entry) *XLSXExtractor {
	return &XLSXExtractor{log: log}
}

// Extract reads the workbook at rawPath, writes its cell text to destPath
// (one line per row, cells space-separated), and reports author, creation
// timestamp, and detected language.
func (e *XLSXExtractor) Extract(ctx context.Context, rawPath, destPath string) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	workbook, err := excelize.OpenFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening XLSX: %v", utils.ErrParsing, err)
	}
	defer workbook.Close()

	var b strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: reading sheet %q: %v", utils.ErrParsing, sheet, err)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, " "))
			b.WriteByte('\n')
		}
	}
	text := b.String()

	lang, err := DetectLanguage(text)
	if err != nil {
		return nil, err
	}

	if err := writeText(destPath, text); err != nil {
		return nil, err
	}

	meta := models.Metadata{Language: lang}
	if props, err := workbook.GetDocProps(); err == nil && props != nil {
		meta.Author = props.Creator
		meta.CreatedAt = formatISODate(props.Created)
	}

	e.log.WithFields(logrus.Fields{"path": rawPath, "language": lang}).Debug("Extracted XLSX")
	return &Result{Metadata: meta}, nil
}
