package connectors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/juris/internal/connectors/filesystem"
	"github.com/custodia-labs/juris/internal/connectors/google"
	"github.com/custodia-labs/juris/internal/connectors/google/drive"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// New creates the connector selected by the source settings.
func New(ctx context.Context, s domain.SourceSettings) (driven.SourceConnector, error) {
	switch s.Kind {
	case domain.SourceKindFilesystem:
		if s.Path == "" {
			return nil, fmt.Errorf("source.path is not set: %w", domain.ErrNotConfigured)
		}
		return filesystem.New(s.Path, s.Extensions), nil

	case domain.SourceKindGDrive:
		creds := google.Credentials{
			File:         s.CredentialsFile,
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RefreshToken: s.RefreshToken,
		}
		if creds.File == "" && !creds.HasRefreshToken() {
			return nil, fmt.Errorf("gdrive needs a credentials file or a refresh token: %w",
				domain.ErrMissingCredentials)
		}
		return drive.New(ctx, creds, drive.ConfigFromSettings(s))

	default:
		return nil, fmt.Errorf("source kind %q: %w", s.Kind, domain.ErrUnsupportedType)
	}
}
