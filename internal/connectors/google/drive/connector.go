// Package drive lists and downloads documents from Google Drive.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/juris/internal/connectors/google"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
	"github.com/custodia-labs/juris/internal/textfold"
)

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Name is the connector name used in reports.
const Name = "gdrive"

// Connector reads documents from Google Drive.
type Connector struct {
	svc     *drive.Service
	cfg     Config
	limiter *google.RateLimiter
}

// New creates a connector authenticated with creds.
func New(ctx context.Context, creds google.Credentials, cfg Config) (*Connector, error) {
	opts, err := google.ClientOptions(ctx, creds, drive.DriveReadonlyScope)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService creates a connector around an existing Drive service.
func NewWithService(svc *drive.Service, cfg Config) *Connector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxDownloadSize <= 0 {
		cfg.MaxDownloadSize = DefaultMaxDownloadSize
	}
	return &Connector{svc: svc, cfg: cfg, limiter: google.NewRateLimiter(google.ServiceDrive)}
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return Name
}

// List returns every document in the configured folders, walking
// subfolders breadth first. Without folders every visible file is listed.
func (c *Connector) List(ctx context.Context) ([]domain.SourceEntry, error) {
	var entries []domain.SourceEntry
	var err error
	if len(c.cfg.FolderIDs) == 0 {
		entries, err = c.listAll(ctx)
	} else {
		entries, err = c.listFolders(ctx)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", google.WrapError("drive", err), domain.ErrSourceUnavailable)
	}
	logger.Debug("drive: listed %d documents", len(entries))
	return entries, nil
}

// folder is a folder queued for listing.
type folder struct {
	id   string
	path string
}

func (c *Connector) listFolders(ctx context.Context) ([]domain.SourceEntry, error) {
	var entries []domain.SourceEntry
	seen := make(map[string]struct{})
	queue := make([]folder, 0, len(c.cfg.FolderIDs))

	for _, id := range c.cfg.FolderIDs {
		name, err := c.folderName(ctx, id)
		if err != nil {
			return nil, err
		}
		queue = append(queue, folder{id: id, path: textfold.Segment(name)})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, ok := seen[current.id]; ok {
			continue
		}
		seen[current.id] = struct{}{}

		q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(current.id))
		err := c.list(ctx, q, func(file *drive.File) {
			if file.MimeType == MimeTypeFolder {
				queue = append(queue, folder{id: file.Id, path: displayPath(current.path, file.Name)})
				return
			}
			if shouldList(file, c.cfg) {
				entries = append(entries, toEntry(file, current.path))
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (c *Connector) listAll(ctx context.Context) ([]domain.SourceEntry, error) {
	var entries []domain.SourceEntry
	q := fmt.Sprintf("trashed = false and mimeType != '%s'", MimeTypeFolder)
	err := c.list(ctx, q, func(file *drive.File) {
		if shouldList(file, c.cfg) {
			entries = append(entries, toEntry(file, ""))
		}
	})
	return entries, err
}

// list pages through a files query.
func (c *Connector) list(ctx context.Context, q string, fn func(*drive.File)) error {
	call := c.svc.Files.List().
		Q(q).
		Fields("nextPageToken, files(" + fileFields + ")").
		PageSize(c.cfg.PageSize).
		OrderBy("name").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, file := range page.Files {
			fn(file)
		}
		// Pages issues the next request when this returns.
		return c.limiter.Wait(ctx)
	})
	return c.limiter.Observe(err)
}

func (c *Connector) folderName(ctx context.Context, id string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	file, err := c.svc.Files.Get(id).Fields("id, name, mimeType").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("folder %s: %w", id, c.limiter.Observe(err))
	}
	if file.MimeType != MimeTypeFolder {
		return "", fmt.Errorf("%s is not a folder: %w", id, domain.ErrInvalidInput)
	}
	return file.Name, nil
}

// Fetch downloads one document. Google Docs are exported to plain text.
func (c *Connector) Fetch(ctx context.Context, entry domain.SourceEntry) (*domain.SourceDocument, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	content, err := c.download(ctx, entry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if domain.Classify(err) == domain.ErrorClassUnknown {
			err = google.WrapError("drive", c.limiter.Observe(err))
		}
		if domain.IsTransient(err) {
			err = fmt.Errorf("%w: %w", err, domain.ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("fetch %s: %w", entry.ID, err)
	}
	return &domain.SourceDocument{SourceEntry: entry, Content: content}, nil
}

func (c *Connector) download(ctx context.Context, entry domain.SourceEntry) ([]byte, error) {
	var body io.ReadCloser
	if isExported(entry) {
		resp, err := c.svc.Files.Export(entry.ID, ExportMimeText).Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		body = resp.Body
	} else {
		resp, err := c.svc.Files.Get(entry.ID).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return nil, err
		}
		body = resp.Body
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.cfg.MaxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.cfg.MaxDownloadSize {
		return nil, fmt.Errorf("larger than %d bytes: %w", c.cfg.MaxDownloadSize, domain.ErrInvalidInput)
	}
	return data, nil
}

// isExported reports whether an entry came from a Google Doc.
// Google Docs carry a version hash because they have no checksum.
func isExported(entry domain.SourceEntry) bool {
	return entry.MimeType == ExportMimeText && strings.HasPrefix(entry.ContentHash, "version:")
}

// escapeQuery escapes a value for a Drive query string literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
