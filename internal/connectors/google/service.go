package google

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// ClientOptions returns the client options authenticating with creds.
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]option.ClientOption, error) {
	switch {
	case creds.File != "":
		return []option.ClientOption{
			option.WithCredentialsFile(creds.File),
			option.WithScopes(scopes...),
		}, nil
	case creds.HasRefreshToken():
		ts, err := NewTokenSource(ctx, creds, scopes...)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithTokenSource(ts)}, nil
	default:
		return []option.ClientOption{option.WithScopes(scopes...)}, nil
	}
}

// NewDriveService creates a Google Drive API service.
func NewDriveService(ctx context.Context, opts ...option.ClientOption) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create drive service: %w", err)
	}
	return svc, nil
}

// NewVisionService creates a Google Cloud Vision API service.
func NewVisionService(ctx context.Context, opts ...option.ClientOption) (*vision.Service, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create vision service: %w", err)
	}
	return svc, nil
}
