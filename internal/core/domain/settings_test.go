package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderLocal, true},
		{AIProviderOllama, true},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProvider("cohere"), false},
		{AIProvider(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderLocal.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Local (feature hashing, offline)", AIProviderLocal.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"local", EmbeddingSettings{Provider: AIProviderLocal}, true},
		{"ollama", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"unset", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLocal}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, AIProviderLocal, s.Embedding.Provider)
	assert.Equal(t, 384, s.Embedding.Dimensions)
	assert.True(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, MetricInnerProduct, s.Index.Metric)
	assert.NoError(t, s.Research.Validate())
	assert.Equal(t, 200, s.Chunker.ChunkSize)
	assert.Less(t, s.Chunker.Overlap, s.Chunker.ChunkSize)
}

func TestDefaultModels_CoverProviders(t *testing.T) {
	embedModels := DefaultEmbeddingModels()
	for _, p := range AllEmbeddingProviders() {
		assert.NotEmpty(t, embedModels[p], p)
	}
	llmModels := DefaultLLMModels()
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, llmModels[p], p)
	}
}

func TestAIProvider_Capabilities(t *testing.T) {
	assert.True(t, AIProviderLocal.SupportsEmbeddings())
	assert.False(t, AIProviderLocal.SupportsLLM())
	assert.False(t, AIProviderAnthropic.SupportsEmbeddings())
	assert.True(t, AIProviderAnthropic.SupportsLLM())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
	assert.False(t, AIProvider("x").SupportsEmbeddings())
}

func TestProviderMenus_Order(t *testing.T) {
	assert.Equal(t, []AIProvider{AIProviderLocal, AIProviderOllama, AIProviderOpenAI}, AllEmbeddingProviders())
	assert.Equal(t, []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}, AllLLMProviders())
}
