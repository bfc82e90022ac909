// Package extract turns fetched raw artifacts into plain text plus a
// per-format metadata bag. One Extractor variant exists per supported format;
// the pipeline dispatches on the extension resolved at classification time.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"doc-harvester/pkg/models"
	"doc-harvester/pkg/utils"
)

// Result carries the metadata produced by a successful extraction. The plain
// text itself is written to the destination path passed to Extract.
type Result struct {
	Metadata models.Metadata
}

// Extractor is the extract capability. Implementations write plain text to
// destPath and return the format-appropriate metadata subset. Parse failures
// are returned as wrapped errors, never panics.
type Extractor interface {
	Extract(ctx context.Context, rawPath, destPath string) (*Result, error)
}

// writeText writes extracted plain text to destPath, creating parent
// directories on demand.
func writeText(destPath, text string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating destination dir: %v", utils.ErrFilesystem, err)
	}
	if err := os.WriteFile(destPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w: writing text: %v", utils.ErrFilesystem, err)
	}
	return nil
}
