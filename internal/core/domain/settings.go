package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// IndexBackend selects where collections are persisted.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendSQLite stores collections in a local SQLite file.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendPostgres stores collections in PostgreSQL.
	IndexBackendPostgres IndexBackend = "postgres"

	// IndexBackendMemory keeps collections in process memory only.
	IndexBackendMemory IndexBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendSQLite, IndexBackendPostgres, IndexBackendMemory:
		return true
	default:
		return false
	}
}

// CacheBackend selects where query embeddings are cached.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// IsValid returns true if the cache backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is passed to every completion, in [0,1].
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls normalisation and splitting.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// StripPageNumbers removes "Page N" and "N / M" artifacts.
	StripPageNumbers bool
}

// RetrievalSettings controls the retriever and synthesizer.
type RetrievalSettings struct {
	// Mode selects the paths run after direct lookup.
	Mode RetrievalMode

	// Strategy is the vector ranking strategy.
	Strategy SearchStrategy

	// K is the maximum result set size.
	K int

	// FetchK is the MMR candidate pool size.
	FetchK int

	// Lambda weighs relevance against diversity for MMR.
	Lambda float64

	// ContextItems caps how many items are stuffed into the answer context.
	ContextItems int

	// MaxKeywords caps keyword tokens taken from a query; 0 means no cap.
	MaxKeywords int

	// RewriteQuery asks the LLM to restate the question before the vector path.
	RewriteQuery bool
}

// IndexSettings controls collection persistence.
type IndexSettings struct {
	// Backend is where collections are persisted.
	Backend IndexBackend

	// Collection is the default collection name.
	Collection string

	// DataDir holds the SQLite database.
	DataDir string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string
}

// ProcedureSettings locates the structured procedure catalogue.
type ProcedureSettings struct {
	// Path is the procedure JSON file; empty disables the structured store.
	Path string
}

// NetworkSettings bounds calls to external collaborators.
type NetworkSettings struct {
	// Timeout is applied to each attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// RequestsPerSecond limits call rate; 0 disables limiting.
	RequestsPerSecond float64
}

// CacheSettings controls the query embedding cache.
type CacheSettings struct {
	Backend   CacheBackend
	RedisAddr string
	TTL       time.Duration
	Size      int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Index      IndexSettings
	Procedures ProcedureSettings
	Network    NetworkSettings
	Cache      CacheSettings
}

// Defaults for chunking and retrieval.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
	DefaultK            = 4
	DefaultFetchK       = 20
	DefaultLambda       = 0.7
	DefaultContextItems = 3
)

// DefaultAppSettings returns settings with sensible defaults.
// AI providers default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Temperature: 0,
		},
		Chunking: ChunkingSettings{
			Size:             DefaultChunkSize,
			Overlap:          DefaultChunkOverlap,
			StripPageNumbers: true,
		},
		Retrieval: RetrievalSettings{
			Mode:         RetrievalHybrid,
			Strategy:     StrategySimilarity,
			K:            DefaultK,
			FetchK:       DefaultFetchK,
			Lambda:       DefaultLambda,
			ContextItems: DefaultContextItems,
		},
		Index: IndexSettings{
			Backend:    IndexBackendSQLite,
			Collection: DefaultCollection,
		},
		Network: NetworkSettings{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			BaseDelay:  200 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		Cache: CacheSettings{
			Backend: CacheBackendMemory,
			TTL:     24 * time.Hour,
			Size:    512,
		},
	}
}

// Validate checks settings that would otherwise fail deep in the pipeline.
func (s AppSettings) Validate() error {
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, s.Chunking.Size)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrConfiguration, s.Chunking.Overlap, s.Chunking.Size)
	}
	if !s.Retrieval.Mode.IsValid() {
		return fmt.Errorf("%w: unknown retrieval mode %q", ErrConfiguration, s.Retrieval.Mode)
	}
	if !s.Retrieval.Strategy.IsValid() {
		return fmt.Errorf("%w: unknown search strategy %q", ErrConfiguration, s.Retrieval.Strategy)
	}
	if s.Retrieval.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrConfiguration, s.Retrieval.K)
	}
	if s.Retrieval.Lambda < 0 || s.Retrieval.Lambda > 1 {
		return fmt.Errorf("%w: lambda must be in [0,1], got %v", ErrConfiguration, s.Retrieval.Lambda)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 1 {
		return fmt.Errorf("%w: temperature must be in [0,1], got %v", ErrConfiguration, s.LLM.Temperature)
	}
	if !s.Index.Backend.IsValid() {
		return fmt.Errorf("%w: unknown index backend %q", ErrConfiguration, s.Index.Backend)
	}
	if s.Index.Backend == IndexBackendPostgres && s.Index.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend requires a DSN", ErrConfiguration)
	}
	if !s.Cache.Backend.IsValid() {
		return fmt.Errorf("%w: unknown cache backend %q", ErrConfiguration, s.Cache.Backend)
	}
	if s.Cache.Backend == CacheBackendRedis && s.Cache.RedisAddr == "" {
		return fmt.Errorf("%w: redis cache requires an address", ErrConfiguration)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor derives the post-processor pipeline from chunking settings.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "metadata"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
		},
	}
}
