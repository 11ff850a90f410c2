package driving

import "github.com/custodia-labs/juris/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment
	// API keys applied over the stored ones.
	Get() (*domain.AppSettings, error)

	// Set stores one configuration key after validating it.
	Set(key, value string) error

	// Unset removes a stored key so its default applies again.
	Unset(key string) error

	// SetAPIKey stores the API key of a provider.
	SetAPIKey(provider domain.AIProvider, apiKey string) error

	// Validate checks the settings needed for ingestion and queries.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
