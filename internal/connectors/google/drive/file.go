package drive

import (
	"fmt"
	"path"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/textfold"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
	mimeTypeWorkspace = "application/vnd.google-apps."
)

// ExportMimeText is the export format of Google Docs.
const ExportMimeText = "text/plain"

// fileFields are the file fields requested when listing.
const fileFields = "id, name, mimeType, md5Checksum, modifiedTime, size, version, trashed"

// shouldList reports whether a listed file is a document to ingest.
func shouldList(file *drive.File, cfg Config) bool {
	if file.Trashed || file.MimeType == MimeTypeFolder {
		return false
	}
	if file.MimeType == MimeTypeGoogleDoc {
		return true
	}
	// Other Workspace types (sheets, forms, drawings) have no text export.
	if strings.HasPrefix(file.MimeType, mimeTypeWorkspace) {
		return false
	}
	return cfg.acceptsName(file.Name)
}

// toEntry converts a Drive file to a source entry. dir is the folder path
// the file was found under.
func toEntry(file *drive.File, dir string) domain.SourceEntry {
	mimeType := file.MimeType
	if mimeType == MimeTypeGoogleDoc {
		mimeType = ExportMimeText
	}

	entry := domain.SourceEntry{
		ID:          file.Id,
		Name:        file.Name,
		Path:        displayPath(dir, file.Name),
		MimeType:    mimeType,
		ContentHash: contentHash(file),
		Size:        file.Size,
	}
	if t, err := time.Parse(time.RFC3339, file.ModifiedTime); err == nil {
		entry.ModifiedAt = t.UTC()
	}
	return entry
}

// contentHash uses the MD5 checksum Drive keeps for binary files. Google
// Docs have none; their version number changes on every edit.
func contentHash(file *drive.File) string {
	if file.Md5Checksum != "" {
		return "md5:" + file.Md5Checksum
	}
	return fmt.Sprintf("version:%d", file.Version)
}

// displayPath joins folder and file name, folding each segment to ASCII.
func displayPath(dir, name string) string {
	folded := textfold.Segment(name)
	if folded == "" {
		folded = name
	}
	if dir == "" {
		return folded
	}
	return path.Join(dir, folded)
}
