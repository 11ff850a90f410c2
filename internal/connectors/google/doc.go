// Package google provides shared infrastructure for the Google Drive
// connector and the Google Vision OCR adapter.
//
// This package contains:
//   - Client options from a credentials file or an OAuth2 refresh token
//   - Service factories for Drive and Vision clients
//   - Mapping of Google API errors (401, 403, 404, 429, 5xx) onto domain errors
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	opts, err := google.ClientOptions(ctx, google.Credentials{File: path}, drive.DriveReadonlyScope)
//	svc, err := google.NewDriveService(ctx, opts...)
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive.readonly (restricted)
//   - https://www.googleapis.com/auth/cloud-vision
//
// No interactive consent flow is run; a refresh token must be obtained
// beforehand and stored in the configuration.
package google
