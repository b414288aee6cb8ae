package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driven"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir            = "data.dir"
	KeyEmbedProvider      = "embedding.provider"
	KeyEmbedModel         = "embedding.model"
	KeyEmbedBaseURL       = "embedding.base_url"
	KeyEmbedAPIKey        = "embedding.api_key"
	KeyEmbedDimensions    = "embedding.dimensions"
	KeyEmbedBatchSize     = "embedding.batch_size"
	KeyEmbedRateLimit     = "embedding.rate_limit"
	KeyLLMProvider        = "llm.provider"
	KeyLLMModel           = "llm.model"
	KeyLLMBaseURL         = "llm.base_url"
	KeyLLMAPIKey          = "llm.api_key"
	KeyIndexMetric        = "index.metric"
	KeyResearchMaxSteps   = "research.max_steps"
	KeyResearchKPerStep   = "research.k_per_step"
	KeyResearchThreshold  = "research.similarity_threshold"
	KeyChunkerChunkSize   = "chunker.chunk_size"
	KeyChunkerOverlap     = "chunker.overlap"
	defaultOllamaEndpoint = "http://localhost:11434"
)

// SettingKeys lists every key the settings service understands, in
// display order.
func SettingKeys() []string {
	return []string{
		KeyDataDir,
		KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey,
		KeyEmbedDimensions, KeyEmbedBatchSize, KeyEmbedRateLimit,
		KeyLLMProvider, KeyLLMModel, KeyLLMBaseURL, KeyLLMAPIKey,
		KeyIndexMetric,
		KeyResearchMaxSteps, KeyResearchKPerStep, KeyResearchThreshold,
		KeyChunkerChunkSize, KeyChunkerOverlap,
	}
}

// SettingsService maps configuration keys onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.ProviderProbe
}

// NewSettingsService creates a settings service. probe may be nil, in
// which case providers are never contacted.
func NewSettingsService(configStore driven.ConfigStore, probe driven.ProviderProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
	}
}

// Get retrieves current application settings. Missing or invalid values
// take their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DataDir: s.getString(KeyDataDir, defaults.DataDir),
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.configStore.GetString(KeyEmbedModel),
			BaseURL:    s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:     s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions: s.getInt(KeyEmbedDimensions, defaults.Embedding.Dimensions),
			BatchSize:  s.getInt(KeyEmbedBatchSize, defaults.Embedding.BatchSize),
			RateLimit:  s.getFloat(KeyEmbedRateLimit, defaults.Embedding.RateLimit),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(KeyLLMProvider, defaults.LLM.Provider),
			Model:    s.configStore.GetString(KeyLLMModel),
			BaseURL:  s.configStore.GetString(KeyLLMBaseURL),
			APIKey:   s.configStore.GetString(KeyLLMAPIKey),
		},
		Index: domain.IndexSettings{
			Metric: s.getMetric(defaults.Index.Metric),
		},
		Research: domain.ResearchConfig{
			MaxSteps:            s.getInt(KeyResearchMaxSteps, defaults.Research.MaxSteps),
			KPerStep:            s.getInt(KeyResearchKPerStep, defaults.Research.KPerStep),
			SimilarityThreshold: s.getFloat(KeyResearchThreshold, defaults.Research.SimilarityThreshold),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize: s.getInt(KeyChunkerChunkSize, defaults.Chunker.ChunkSize),
			Overlap:   s.getInt(KeyChunkerOverlap, defaults.Chunker.Overlap),
		},
	}

	// Model defaults follow the provider.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{KeyDataDir, settings.DataDir, false},
		{KeyEmbedProvider, settings.Embedding.Provider.String(), false},
		{KeyEmbedModel, settings.Embedding.Model, false},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{KeyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{KeyEmbedDimensions, settings.Embedding.Dimensions, false},
		{KeyEmbedBatchSize, settings.Embedding.BatchSize, false},
		{KeyEmbedRateLimit, settings.Embedding.RateLimit, false},
		{KeyLLMProvider, settings.LLM.Provider.String(), false},
		{KeyLLMModel, settings.LLM.Model, false},
		{KeyLLMBaseURL, settings.LLM.BaseURL, false},
		{KeyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{KeyIndexMetric, settings.Index.Metric.String(), false},
		{KeyResearchMaxSteps, settings.Research.MaxSteps, false},
		{KeyResearchKPerStep, settings.Research.KPerStep, false},
		{KeyResearchThreshold, settings.Research.SimilarityThreshold, false},
		{KeyChunkerChunkSize, settings.Chunker.ChunkSize, false},
		{KeyChunkerOverlap, settings.Chunker.Overlap, false},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaEndpoint
		}
	default:
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	// Known remote models have a fixed size.
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || provider == domain.AIProviderLocal {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaEndpoint
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetMetric changes the metric used for newly built indexes.
// Existing index files keep the metric they were built with.
func (s *SettingsService) SetMetric(metric domain.Metric) error {
	if !metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, metric)
	}
	return s.configStore.Set(KeyIndexMetric, metric.String())
}

// SetResearch updates the reasoning loop bounds.
func (s *SettingsService) SetResearch(cfg domain.ResearchConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Research = cfg
	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrInvalidConfig, settings.LLM.Provider)
	}
	if err := settings.Research.Validate(); err != nil {
		return err
	}
	if settings.Chunker.ChunkSize <= 0 || settings.Chunker.Overlap < 0 ||
		settings.Chunker.Overlap >= settings.Chunker.ChunkSize {
		return fmt.Errorf("%w: chunker overlap %d must be below chunk size %d",
			domain.ErrInvalidConfig, settings.Chunker.Overlap, settings.Chunker.ChunkSize)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeEmbedding(ctx, settings.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeLLM(ctx, settings.LLM)
}

// Helper methods for reading config with defaults. A present key wins
// even when its value is zero.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
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

func (s *SettingsService) getMetric(defaultVal domain.Metric) domain.Metric {
	metric := domain.Metric(s.configStore.GetString(KeyIndexMetric))
	if !metric.IsValid() {
		return defaultVal
	}
	return metric
}
