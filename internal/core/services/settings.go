package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySourceKind         = "source.kind"
	keySourcePath         = "source.path"
	keySourceExtensions   = "source.extensions"
	keyDriveFolderIDs     = "source.gdrive.folder_ids"
	keyDriveCredentials   = "source.gdrive.credentials_file"
	keyDriveClientID      = "source.gdrive.client_id"
	keyDriveClientSecret  = "source.gdrive.client_secret"
	keyDriveRefreshToken  = "source.gdrive.refresh_token"
	keyOCRProvider        = "ocr.provider"
	keyOCRHTTPURL         = "ocr.http.url"
	keyOCRCredentials     = "ocr.vision.credentials_file"
	keyOCRLanguageHints   = "ocr.language_hints"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyLLMModels          = "llm.models"
	keyIngestWorkers      = "ingest.workers"
	keyIngestCallTimeout  = "ingest.call_timeout"
	keyIngestBatchSize    = "ingest.max_batch_size"
	keyIngestBatchBytes   = "ingest.max_batch_bytes"
	keyIngestMaxAttempts  = "ingest.max_attempts"
	keyIngestPrune        = "ingest.prune"
	keyRequestsPerSecond  = "provider.requests_per_second"
	keyRetrievalTopK      = "retrieval.top_k"
	keyRetrievalMinScore  = "retrieval.min_score"
	keyRetrievalMaxChars  = "retrieval.max_context_chars"
	keyPipelineProcessors = "pipeline.processors"
)

// envGoogleCredentials is the standard Google credentials variable.
const envGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"

// valueKind is how a setting value is parsed from the command line.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
	kindDuration
)

// settingKinds lists the fixed settable keys. Provider and processor keys
// are matched by settingKind.
var settingKinds = map[string]valueKind{
	keySourceKind:         kindString,
	keySourcePath:         kindString,
	keySourceExtensions:   kindList,
	keyDriveFolderIDs:     kindList,
	keyDriveCredentials:   kindString,
	keyDriveClientID:      kindString,
	keyDriveClientSecret:  kindString,
	keyDriveRefreshToken:  kindString,
	keyOCRProvider:        kindString,
	keyOCRHTTPURL:         kindString,
	keyOCRCredentials:     kindString,
	keyOCRLanguageHints:   kindList,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedDimensions:    kindInt,
	keyLLMModels:          kindList,
	keyIngestWorkers:      kindInt,
	keyIngestCallTimeout:  kindDuration,
	keyIngestBatchSize:    kindInt,
	keyIngestBatchBytes:   kindInt,
	keyIngestMaxAttempts:  kindInt,
	keyIngestPrune:        kindBool,
	keyRequestsPerSecond:  kindFloat,
	keyRetrievalTopK:      kindInt,
	keyRetrievalMinScore:  kindFloat,
	keyRetrievalMaxChars:  kindInt,
	keyPipelineProcessors: kindList,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// API keys and Google credentials from the environment take precedence
// over stored values.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Source: domain.SourceSettings{
			Kind:            s.getSourceKind(defaults.Source.Kind),
			Path:            s.configStore.GetString(keySourcePath),
			Extensions:      s.getStringSlice(keySourceExtensions, defaults.Source.Extensions),
			FolderIDs:       s.configStore.GetStringSlice(keyDriveFolderIDs),
			CredentialsFile: s.withEnv(envGoogleCredentials, s.configStore.GetString(keyDriveCredentials)),
			ClientID:        s.configStore.GetString(keyDriveClientID),
			ClientSecret:    s.configStore.GetString(keyDriveClientSecret),
			RefreshToken:    s.configStore.GetString(keyDriveRefreshToken),
		},
		OCR: domain.OCRSettings{
			Provider:        s.getOCRProvider(defaults.OCR.Provider),
			HTTPURL:         s.configStore.GetString(keyOCRHTTPURL),
			CredentialsFile: s.withEnv(envGoogleCredentials, s.configStore.GetString(keyOCRCredentials)),
			LanguageHints:   s.getStringSlice(keyOCRLanguageHints, defaults.OCR.LanguageHints),
		},
		Ingest: domain.IngestSettings{
			Workers:           s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
			CallTimeout:       s.getDuration(keyIngestCallTimeout, defaults.Ingest.CallTimeout),
			MaxBatchSize:      s.getInt(keyIngestBatchSize, defaults.Ingest.MaxBatchSize),
			MaxBatchBytes:     s.getInt(keyIngestBatchBytes, defaults.Ingest.MaxBatchBytes),
			MaxAttempts:       s.getInt(keyIngestMaxAttempts, defaults.Ingest.MaxAttempts),
			Prune:             s.getBool(keyIngestPrune, defaults.Ingest.Prune),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.Ingest.RequestsPerSecond),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			MinScore:        s.getFloat(keyRetrievalMinScore, defaults.Retrieval.MinScore),
			MaxContextChars: s.getInt(keyRetrievalMaxChars, defaults.Retrieval.MaxContextChars),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	settings.LLM = s.getLLMSettings()
	settings.Embedding = s.getEmbeddingSettings(settings.LLM)

	return settings, nil
}

// Set parses and stores one setting.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	kind, ok := settingKind(key)
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	parsed, err := parseSetting(key, kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("set %s: %w: %w", key, domain.ErrInvalidInput, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored setting so its default applies again.
func (s *SettingsService) Unset(key string) error {
	key = strings.TrimSpace(key)
	if _, ok := settingKind(key); !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	if err := s.configStore.Delete(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// SetAPIKey stores the API key of a provider.
func (s *SettingsService) SetAPIKey(provider domain.AIProvider, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid provider %q: %w", provider, domain.ErrInvalidInput)
	}
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("provider %s does not use an API key: %w", provider, domain.ErrInvalidInput)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("empty API key for %s: %w", provider, domain.ErrInvalidInput)
	}

	if err := s.configStore.Set(providerKey(provider, "api_key"), apiKey); err != nil {
		return fmt.Errorf("save %s api_key: %w", provider, err)
	}
	return nil
}

// Validate checks that settings are complete enough to ingest and answer.
// Every problem found is reported.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	notConfigured := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", domain.ErrNotConfigured, fmt.Sprintf(format, args...)))
	}

	switch settings.Source.Kind {
	case domain.SourceKindFilesystem:
		if settings.Source.Path == "" {
			notConfigured("%s is required for the filesystem source", keySourcePath)
		}
	case domain.SourceKindGDrive:
		hasOAuth := settings.Source.ClientID != "" && settings.Source.RefreshToken != ""
		if settings.Source.CredentialsFile == "" && !hasOAuth {
			notConfigured("Drive needs %s or a client ID and refresh token", keyDriveCredentials)
		}
	}

	if settings.OCR.Provider == domain.OCRProviderHTTP && settings.OCR.HTTPURL == "" {
		notConfigured("%s is required for the http OCR provider", keyOCRHTTPURL)
	}
	if settings.OCR.Provider == domain.OCRProviderVision && settings.OCR.CredentialsFile == "" {
		notConfigured("%s is required for the vision OCR provider", keyOCRCredentials)
	}

	if !settings.Embedding.IsConfigured() {
		notConfigured("embedding provider %q is not usable", settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		notConfigured("%s needs at least one model with credentials", keyLLMModels)
	}

	if r := settings.Retrieval; r.TopK < 1 || r.TopK > domain.MaxTopK {
		errs = append(errs, fmt.Errorf("%w: %s must be between 1 and %d", domain.ErrInvalidInput, keyRetrievalTopK, domain.MaxTopK))
	}
	if r := settings.Retrieval; r.MinScore < -1 || r.MinScore > 1 {
		errs = append(errs, fmt.Errorf("%w: %s must be between -1 and 1", domain.ErrInvalidInput, keyRetrievalMinScore))
	}
	if p := settings.Pipeline.Processors; len(p) == 0 || p[0] != "chunker" {
		errs = append(errs, fmt.Errorf("%w: %s must start with chunker", domain.ErrInvalidInput, keyPipelineProcessors))
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	defaults := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice(keyPipelineProcessors); len(processors) > 0 {
		defaults.Processors = processors
	}

	// Overlay per-processor keys on the defaults
	for _, name := range defaults.Processors {
		cfg := s.loadProcessorConfig("pipeline." + name + ".")
		if len(cfg) == 0 {
			continue
		}
		if defaults.ProcessorConfigs == nil {
			defaults.ProcessorConfigs = make(map[string]map[string]any)
		}
		existing := defaults.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		for k, v := range cfg {
			existing[k] = v
		}
		defaults.ProcessorConfigs[name] = existing
	}

	return defaults
}

// processorKeys are the per-processor integer settings.
var processorKeys = []string{"chunk_size", "overlap", "tolerance"}

func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range processorKeys {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}
	return cfg
}

func (s *SettingsService) getLLMSettings() domain.LLMSettings {
	llm := domain.LLMSettings{
		APIKeys:  make(map[domain.AIProvider]string),
		BaseURLs: make(map[domain.AIProvider]string),
	}

	for _, raw := range s.configStore.GetStringSlice(keyLLMModels) {
		spec, err := domain.ParseModelSpec(raw)
		if err != nil {
			logger.Warn("ignoring model %q: %v", raw, err)
			continue
		}
		llm.Models = append(llm.Models, spec)
	}

	for _, p := range allProviders {
		if key := s.withEnv(p.APIKeyEnv(), s.configStore.GetString(providerKey(p, "api_key"))); key != "" {
			llm.APIKeys[p] = key
		}
		if url := s.configStore.GetString(providerKey(p, "base_url")); url != "" {
			llm.BaseURLs[p] = url
		}
	}
	return llm
}

// getEmbeddingSettings falls back to the provider's LLM credentials when
// no embedding-specific API key or base URL is stored.
func (s *SettingsService) getEmbeddingSettings(llm domain.LLMSettings) domain.EmbeddingSettings {
	emb := domain.EmbeddingSettings{
		Provider:   s.getProvider(keyEmbedProvider, ""),
		Model:      s.configStore.GetString(keyEmbedModel),
		BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
		APIKey:     s.configStore.GetString(keyEmbedAPIKey),
		Dimensions: s.configStore.GetInt(keyEmbedDimensions),
	}
	if emb.Provider == "" {
		return emb
	}
	if emb.Model == "" {
		emb.Model = domain.DefaultEmbeddingModels()[emb.Provider]
	}
	if env := s.getenv(emb.Provider.APIKeyEnv()); env != "" && emb.Provider.RequiresAPIKey() {
		emb.APIKey = env
	}
	if emb.APIKey == "" {
		emb.APIKey = llm.APIKeys[emb.Provider]
	}
	if emb.BaseURL == "" {
		emb.BaseURL = llm.BaseURLs[emb.Provider]
	}
	if emb.Dimensions == 0 {
		emb.Dimensions = domain.EmbeddingDimensions()[emb.Model]
	}
	return emb
}

var allProviders = []domain.AIProvider{
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
	domain.AIProviderAnthropic,
	domain.AIProviderGemini,
	domain.AIProviderMistral,
}

func providerKey(p domain.AIProvider, field string) string {
	return "llm." + string(p) + "." + field
}

// settingKind returns how key is parsed, or false for unknown keys.
func settingKind(key string) (valueKind, bool) {
	if kind, ok := settingKinds[key]; ok {
		return kind, true
	}

	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return 0, false
	}
	switch parts[0] {
	case "llm":
		if domain.AIProvider(parts[1]).IsValid() && (parts[2] == "api_key" || parts[2] == "base_url") {
			return kindString, true
		}
	case "pipeline":
		for _, k := range processorKeys {
			if parts[2] == k {
				return kindInt, true
			}
		}
	}
	return 0, false
}

// parseSetting converts a command-line value to its stored type and
// checks enumerated values.
func parseSetting(key string, kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative: %d", n)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return b, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("not a duration: %q", value)
		}
		return value, nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if key == keyLLMModels {
			for _, item := range items {
				if _, err := domain.ParseModelSpec(item); err != nil {
					return nil, err
				}
			}
		}
		return items, nil
	}

	switch key {
	case keySourceKind:
		if !domain.SourceKind(value).IsValid() {
			return nil, fmt.Errorf("unknown source kind %q", value)
		}
	case keyOCRProvider:
		if !domain.OCRProvider(value).IsValid() {
			return nil, fmt.Errorf("unknown OCR provider %q", value)
		}
	case keyEmbedProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() || p == domain.AIProviderAnthropic {
			return nil, fmt.Errorf("provider %q does not support embeddings", value)
		}
	}
	return value, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) withEnv(name, stored string) string {
	if name != "" {
		if v := s.getenv(name); v != "" {
			return v
		}
	}
	return stored
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getSourceKind(defaultVal domain.SourceKind) domain.SourceKind {
	kind := domain.SourceKind(s.configStore.GetString(keySourceKind))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}

func (s *SettingsService) getOCRProvider(defaultVal domain.OCRProvider) domain.OCRProvider {
	provider := domain.OCRProvider(s.configStore.GetString(keyOCRProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
