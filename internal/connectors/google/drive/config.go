package drive

import (
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// Default listing limits.
const (
	DefaultPageSize        = 100
	DefaultMaxDownloadSize = 50 * 1024 * 1024
)

// Config holds Google Drive connector configuration.
type Config struct {
	// FolderIDs limits listing to these folders and their subfolders.
	// Empty lists every file visible to the credentials.
	FolderIDs []string

	// Extensions limits regular files to these extensions.
	// Google Docs are always included and exported to text.
	Extensions []string

	// PageSize is the page size for list requests.
	PageSize int64

	// MaxDownloadSize bounds one download.
	MaxDownloadSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        DefaultPageSize,
		MaxDownloadSize: DefaultMaxDownloadSize,
	}
}

// ConfigFromSettings builds the connector configuration from source settings.
func ConfigFromSettings(s domain.SourceSettings) Config {
	cfg := DefaultConfig()
	for _, id := range s.FolderIDs {
		if id = strings.TrimSpace(id); id != "" {
			cfg.FolderIDs = append(cfg.FolderIDs, id)
		}
	}
	for _, ext := range s.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extensions = append(cfg.Extensions, ext)
	}
	return cfg
}

// acceptsName checks the extension filter.
func (c Config) acceptsName(name string) bool {
	if len(c.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
