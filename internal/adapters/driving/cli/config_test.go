package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	coreservices "github.com/custodia-labs/deep-researcher/internal/core/services"
)

func TestConfigShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config")
	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Model: hashing-v1")
	assert.Contains(t, out, "Provider: none (heuristic reasoning)")
	assert.Contains(t, out, "Max steps: 5")
	assert.Contains(t, out, "Chunk size: 200 words")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigList_CoversEveryKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "list")
	require.NoError(t, err)
	for _, key := range coreservices.SettingKeys() {
		assert.Contains(t, out, key)
		assert.Contains(t, settingFields, key, "key %s has no field mapping", key)
	}
	assert.Regexp(t, `research\.k_per_step\s+5`, out)
	assert.Regexp(t, `llm\.api_key\s+\(not set\)`, out)
	assert.Contains(t, out, "Config file: :memory:")
}

func TestConfigGet(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set(coreservices.KeyLLMAPIKey, "sk-1234567890abcdef"))

	out, err := execute("config", "get", "research.similarity_threshold")
	require.NoError(t, err)
	assert.Equal(t, "0.1\n", out)

	out, err = execute("config", "get", "llm.api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-1...cdef\n", out)

	_, err = execute("config", "get", "no.such.key")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  any
	}{
		{"int", "research.max_steps", "8", 8},
		{"float", "research.similarity_threshold", "0.25", 0.25},
		{"metric", "index.metric", "l2", "l2"},
		{"provider", "embedding.provider", "ollama", "ollama"},
		{"data dir", "data.dir", "/srv/corpus", "/srv/corpus"},
		{"clear llm", "llm.provider", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			out, err := execute("config", "set", tt.key, tt.value)
			require.NoError(t, err)
			assert.Contains(t, out, tt.key+" = "+tt.value)

			got, ok := ts.config.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero steps", "research.max_steps", "0"},
		{"not a number", "research.k_per_step", "many"},
		{"bad metric", "index.metric", "cosine"},
		{"anthropic embeddings", "embedding.provider", "anthropic"},
		{"local llm", "llm.provider", "local"},
		{"overlap too large", "chunker.overlap", "200"},
		{"negative rate", "embedding.rate_limit", "-1"},
		{"unknown key", "search.mode", "full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			_, err := execute("config", "set", tt.key, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			_, stored := ts.config.Get(tt.key)
			assert.False(t, stored)
		})
	}
}

func TestConfigSet_MissingValue(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("config", "set", "research.max_steps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value")
}

func TestConfigSet_SecretFromInput(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput("sk-abcdefghijkl\n", "config", "set", "embedding.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding.api_key = sk-a...ijkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")
	assert.Equal(t, "sk-abcdefghijkl", ts.config.GetString("embedding.api_key"))
}

func TestConfigEmbedding_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput("3\n\nsk-test-1234567890\n", "config", "embedding")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedding provider configured")
	assert.Equal(t, "openai", ts.config.GetString(coreservices.KeyEmbedProvider))
	assert.Equal(t, "text-embedding-3-small", ts.config.GetString(coreservices.KeyEmbedModel))
	assert.Equal(t, "sk-test-1234567890", ts.config.GetString(coreservices.KeyEmbedAPIKey))
}

func TestConfigLLM_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput("1\nmistral\n", "config", "llm")
	require.NoError(t, err)
	assert.Contains(t, out, "LLM provider configured")
	assert.Equal(t, "ollama", ts.config.GetString(coreservices.KeyLLMProvider))
	assert.Equal(t, "mistral", ts.config.GetString(coreservices.KeyLLMModel))
}

func TestConfigLLM_RequiresAPIKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeWithInput("2\n\n\n", "config", "llm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestConfigValidate(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedding provider... OK")
	assert.NotContains(t, out, "LLM provider...")

	require.NoError(t, ts.config.Set(coreservices.KeyEmbedProvider, "openai"))
	_, err = execute("config", "validate")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestConfig_SettingsNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	_, err := execute("config", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc123", "****"},
		{"12345678", "****"},
		{"sk-1234567890abcdef", "sk-1...cdef"},
		{"", "****"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, maskAPIKey(tt.input), "input %q", tt.input)
	}
}

func TestParseChoice(t *testing.T) {
	assert.Equal(t, 1, parseChoice("", 3, 1))
	assert.Equal(t, 2, parseChoice("2", 3, 1))
	assert.Equal(t, 1, parseChoice("9", 3, 1))
	assert.Equal(t, 0, parseChoice("x", 3, 0))
}
