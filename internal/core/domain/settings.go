package domain

const unknownDescription = "Unknown"

// AIProvider names a backend for embeddings, completions or both.
type AIProvider string

const (
	// AIProviderLocal is the built-in feature-hashing embedder. It is the
	// default so a fresh install can index and search offline.
	AIProviderLocal     AIProvider = "local"
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// provider describes what a backend can do. embedModel or llmModel is
// empty when the backend lacks that capability.
type provider struct {
	name        AIProvider
	description string
	needsKey    bool
	onHost      bool
	embedModel  string
	llmModel    string
}

// providers is ordered as menus list them.
var providers = []provider{
	{name: AIProviderLocal, description: "Local (feature hashing, offline)", onHost: true, embedModel: "hashing-v1"},
	{name: AIProviderOllama, description: "Ollama (local)", onHost: true, embedModel: "nomic-embed-text", llmModel: "llama3.2"},
	{name: AIProviderOpenAI, description: "OpenAI (cloud)", needsKey: true, embedModel: "text-embedding-3-small", llmModel: "gpt-4o-mini"},
	{name: AIProviderAnthropic, description: "Anthropic (cloud)", needsKey: true, llmModel: "claude-3-5-sonnet-latest"},
}

func lookupProvider(p AIProvider) (provider, bool) {
	for _, info := range providers {
		if info.name == p {
			return info, true
		}
	}
	return provider{}, false
}

func (p AIProvider) IsValid() bool {
	_, ok := lookupProvider(p)
	return ok
}

func (p AIProvider) RequiresAPIKey() bool {
	info, _ := lookupProvider(p)
	return info.needsKey
}

// IsLocal reports whether the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	info, _ := lookupProvider(p)
	return info.onHost
}

// SupportsEmbeddings reports whether the provider can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	info, _ := lookupProvider(p)
	return info.embedModel != ""
}

// SupportsLLM reports whether the provider can complete prompts.
func (p AIProvider) SupportsLLM() bool {
	info, _ := lookupProvider(p)
	return info.llmModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

func (p AIProvider) Description() string {
	if info, ok := lookupProvider(p); ok {
		return info.description
	}
	return unknownDescription
}

// EmbeddingSettings configures the embedder.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	// BaseURL overrides the endpoint for Ollama or OpenAI-compatible servers.
	BaseURL string
	APIKey  string

	// Dimensions sizes the local embedder and can shorten OpenAI
	// text-embedding-3 vectors. Other models have a fixed size.
	Dimensions int

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// RateLimit caps embedding requests per second. Zero disables limiting.
	RateLimit float64
}

// IsConfigured reports whether an embedder can be built from e.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	return !e.Provider.RequiresAPIKey() || e.APIKey != ""
}

// LLMSettings configures the completion backend. An unset provider means
// reasoning runs on the heuristic reasoner.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether an LLM client can be built from l.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.SupportsLLM() {
		return false
	}
	return !l.Provider.RequiresAPIKey() || l.APIKey != ""
}

type IndexSettings struct {
	// Metric is used when a new index is built.
	Metric Metric
}

// ChunkerSettings sizes the word windows, both in words.
type ChunkerSettings struct {
	ChunkSize int
	Overlap   int
}

// AppSettings is everything `config` can show or change.
type AppSettings struct {
	// DataDir is the corpus directory scanned by `index build`.
	DataDir   string
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Index     IndexSettings
	Research  ResearchConfig
	Chunker   ChunkerSettings
}

// DefaultAppSettings embeds locally and leaves the LLM unset, so a new
// install works offline until the user opts in with `config llm`.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		DataDir: "data",
		Embedding: EmbeddingSettings{
			Provider:   AIProviderLocal,
			Model:      DefaultEmbeddingModels()[AIProviderLocal],
			Dimensions: 384,
			BatchSize:  32,
		},
		Index:    IndexSettings{Metric: MetricInnerProduct},
		Research: DefaultResearchConfig(),
		Chunker:  ChunkerSettings{ChunkSize: 200, Overlap: 40},
	}
}

func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, info := range providers {
		if info.embedModel != "" {
			out = append(out, info.name)
		}
	}
	return out
}

func AllLLMProviders() []AIProvider {
	var out []AIProvider
	for _, info := range providers {
		if info.llmModel != "" {
			out = append(out, info.name)
		}
	}
	return out
}

func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, info := range providers {
		if info.embedModel != "" {
			out[info.name] = info.embedModel
		}
	}
	return out
}

func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, info := range providers {
		if info.llmModel != "" {
			out[info.name] = info.llmModel
		}
	}
	return out
}

// EmbeddingDimensions maps known remote embedding models to their size.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

func AllMetrics() []Metric {
	return []Metric{MetricInnerProduct, MetricL2}
}
