package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// OCRAdapter turns document bytes into text, one entry per physical page.
// The OCR engine itself is a black box behind this interface.
type OCRAdapter interface {
	// Name returns the adapter name for logging.
	Name() string

	// Extract returns the ordered page texts of doc.
	// Failures wrap domain.ErrOCRFailure (see domain.OCRError); transport
	// failures wrap the transient sentinels so they can be retried.
	Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error)
}
