// Package filesystem lists and reads documents from a local directory tree.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/textfold"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.SourceConnector = (*Connector)(nil)
	_ driven.Watcher         = (*Connector)(nil)
)

// Name is the connector name used in reports.
const Name = "filesystem"

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Connector reads documents below a root directory.
// Document IDs are slash-separated paths relative to the root.
type Connector struct {
	rootPath   string
	extensions map[string]struct{}
	debounce   time.Duration
}

// New creates a connector for rootPath. When extensions is empty every
// regular file is listed.
func New(rootPath string, extensions []string) *Connector {
	c := &Connector{rootPath: rootPath, debounce: DefaultDebounce}
	if len(extensions) > 0 {
		c.extensions = make(map[string]struct{}, len(extensions))
		for _, ext := range extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			c.extensions[ext] = struct{}{}
		}
	}
	return c
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return Name
}

// List walks the root directory. Hidden files and directories are skipped.
func (c *Connector) List(ctx context.Context) ([]domain.SourceEntry, error) {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("filesystem: root %s: %w: %w", c.rootPath, err, domain.ErrSourceUnavailable)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filesystem: root %s is not a directory: %w", c.rootPath, domain.ErrSourceUnavailable)
	}

	var entries []domain.SourceEntry
	err = filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !c.accepts(path) {
			return nil
		}

		entry, err := c.entry(path, d)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("filesystem: walk %s: %w: %w", c.rootPath, err, domain.ErrSourceUnavailable)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// entry describes one file, hashing its content.
func (c *Connector) entry(path string, d fs.DirEntry) (domain.SourceEntry, error) {
	info, err := d.Info()
	if err != nil {
		return domain.SourceEntry{}, err
	}
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return domain.SourceEntry{}, err
	}
	hash, err := hashFile(path)
	if err != nil {
		return domain.SourceEntry{}, err
	}

	id := filepath.ToSlash(rel)
	return domain.SourceEntry{
		ID:          id,
		Name:        d.Name(),
		Path:        DisplayPath(id),
		MimeType:    mimeType(path),
		ModifiedAt:  info.ModTime().UTC(),
		ContentHash: hash,
		Size:        info.Size(),
	}, nil
}

// Fetch reads one file.
func (c *Connector) Fetch(ctx context.Context, entry domain.SourceEntry) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.resolve(entry.ID)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("filesystem: %s: %w", entry.ID, domain.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("filesystem: read %s: %w: %w", entry.ID, err, domain.ErrSourceUnavailable)
	}

	return &domain.SourceDocument{SourceEntry: entry, Content: content}, nil
}

// resolve maps a document ID back to a path below the root.
func (c *Connector) resolve(id string) (string, error) {
	rel := filepath.FromSlash(id)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("filesystem: %q escapes the root: %w", id, domain.ErrInvalidInput)
	}
	return filepath.Join(c.rootPath, rel), nil
}

// accepts checks the extension filter.
func (c *Connector) accepts(path string) bool {
	if c.extensions == nil {
		return true
	}
	_, ok := c.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DisplayPath folds every segment of a slash-separated path to portable ASCII.
func DisplayPath(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		if folded := textfold.Segment(s); folded != "" {
			segments[i] = folded
		}
	}
	return strings.Join(segments, "/")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// hashFile returns the content hash of a file without loading it whole.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return domain.HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// mimeType guesses the content type from the extension.
func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	case ".eml":
		return "message/rfc822"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
