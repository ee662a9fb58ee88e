// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/qms-rag/internal/adapters/driven/cache"
	memcache "github.com/custodia-labs/qms-rag/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/qms-rag/internal/adapters/driven/cache/redis"
	ollamaembed "github.com/custodia-labs/qms-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/qms-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/qms-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/qms-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/qms-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/qms-rag/internal/adapters/driven/resilience"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI collaborators built from settings.
// A nil field means the provider is not configured.
type Services struct {
	// Embedding is used for builds: retried, never cached.
	Embedding driven.EmbeddingService

	// QueryEmbedding is used at query time: retried and cached.
	QueryEmbedding driven.EmbeddingService

	// LLM is retried.
	LLM driven.LLMService

	// Warnings lists non-fatal issues such as an unreachable cache.
	Warnings []string
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	// QueryEmbedding wraps Embedding, so closing it closes both.
	switch {
	case s.QueryEmbedding != nil:
		s.QueryEmbedding.Close()
	case s.Embedding != nil:
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// NewServices creates the embedding and LLM services described by settings,
// wrapped in the retry policy and, for query embeddings, the cache.
// Unconfigured providers are left nil; misconfigured ones fail.
func NewServices(ctx context.Context, settings domain.AppSettings) (*Services, error) {
	policy := PolicyFor(settings.Network)
	out := &Services{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %w", domain.ErrConfiguration, err)
	}
	if embedder != nil {
		out.Embedding = resilience.WrapEmbedder(embedder, policy)
		out.QueryEmbedding = out.Embedding

		c, err := CreateCache(ctx, settings.Cache)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("embedding cache disabled: %v", err))
			logger.Warn("embedding cache disabled: %v", err)
		}
		if c != nil {
			out.QueryEmbedding = cache.WrapEmbedder(out.Embedding, c)
		}
	}

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("%w: llm: %w", domain.ErrConfiguration, err)
	}
	if llm != nil {
		out.LLM = resilience.WrapLLM(llm, policy)
	}

	return out, nil
}

// PolicyFor builds the retry policy from network settings.
func PolicyFor(n domain.NetworkSettings) *resilience.Policy {
	return resilience.NewPolicy(resilience.Config{
		Timeout:           n.Timeout,
		MaxRetries:        n.MaxRetries,
		RequestsPerSecond: n.RequestsPerSecond,
		BaseDelay:         n.BaseDelay,
		MaxDelay:          n.MaxDelay,
	})
}

// CreateCache creates the query embedding cache. Returns nil for the none backend.
func CreateCache(ctx context.Context, settings domain.CacheSettings) (driven.EmbeddingCache, error) {
	switch settings.Backend {
	case domain.CacheBackendNone, "":
		return nil, nil

	case domain.CacheBackendMemory:
		return memcache.New(settings.Size, settings.TTL), nil

	case domain.CacheBackendRedis:
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return rediscache.NewCache(ctx, rediscache.Config{Addr: settings.RedisAddr, TTL: settings.TTL})

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", settings.Backend)
	}
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", domain.ErrEmbeddingUnavailable, providerOf(settings))
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		var p domain.AIProvider
		if settings != nil {
			p = settings.Provider
		}
		return fmt.Errorf("%w: llm provider %q is not configured", domain.ErrLLMUnavailable, p)
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}

func providerOf(settings *domain.EmbeddingSettings) domain.AIProvider {
	if settings == nil {
		return ""
	}
	return settings.Provider
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider == domain.AIProviderAnthropic {
			return nil, errors.New("anthropic does not support embeddings, use ollama or openai")
		}
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings)

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
