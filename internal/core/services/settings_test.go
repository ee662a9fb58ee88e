package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

func newTestSettings(env map[string]string) (*SettingsService, *fakeConfigStore) {
	store := newFakeConfigStore()
	svc := NewSettingsService(store, &fakeValidator{})
	svc.getenv = func(k string) string { return env[k] }
	return svc, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	svc, _ := newTestSettings(nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	svc, store := newTestSettings(nil)
	store.data["embedding.provider"] = "openai"
	store.data["embedding.api_key"] = "sk-file"
	store.data["chunking.size"] = int64(800)
	store.data["retrieval.lambda"] = 0.5
	store.data["retrieval.rewrite_query"] = true
	store.data["network.timeout"] = "45s"
	store.data["cache.backend"] = "redis"

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "sk-file", settings.Embedding.APIKey)
	assert.Equal(t, 800, settings.Chunking.Size)
	assert.InDelta(t, 0.5, settings.Retrieval.Lambda, 1e-9)
	assert.True(t, settings.Retrieval.RewriteQuery)
	assert.Equal(t, 45*time.Second, settings.Network.Timeout)
	assert.Equal(t, domain.CacheBackendRedis, settings.Cache.Backend)
}

func TestSettingsService_Get_BadStoredValue(t *testing.T) {
	svc, store := newTestSettings(nil)
	store.data["network.timeout"] = "soon"

	_, err := svc.Get()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSettingsService_Get_EnvironmentFallbacks(t *testing.T) {
	svc, store := newTestSettings(map[string]string{
		EnvOpenAIKey:    "sk-env",
		EnvAnthropicKey: "ant-env",
		EnvPostgresDSN:  "postgres://localhost/qms",
		EnvRedisAddr:    "localhost:6379",
	})
	store.data["embedding.provider"] = "openai"
	store.data["llm.provider"] = "anthropic"

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "ant-env", settings.LLM.APIKey)
	assert.Equal(t, "postgres://localhost/qms", settings.Index.PostgresDSN)
	assert.Equal(t, "localhost:6379", settings.Cache.RedisAddr)

	store.data["llm.api_key"] = "ant-file"
	settings, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "ant-file", settings.LLM.APIKey, "file wins over environment")
}

func TestSettingsService_Save_SkipsEnvironmentSecrets(t *testing.T) {
	svc, store := newTestSettings(map[string]string{EnvOpenAIKey: "sk-env"})
	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.APIKey = "sk-env"
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.APIKey = "sk-typed"

	require.NoError(t, svc.Save(&settings))

	_, stored := store.data["embedding.api_key"]
	assert.False(t, stored)
	assert.Equal(t, "sk-typed", store.data["llm.api_key"])
	assert.Equal(t, "openai", store.data["embedding.provider"])
	assert.Equal(t, int64(domain.DefaultChunkSize), store.data["chunking.size"])
	assert.Equal(t, "30s", store.data["network.timeout"])
	assert.Equal(t, true, store.data["chunking.strip_page_numbers"])
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	svc, _ := newTestSettings(nil)
	settings := domain.DefaultAppSettings()
	settings.Retrieval.Strategy = domain.StrategyMMR
	settings.Retrieval.FetchK = 30
	settings.Cache.TTL = 90 * time.Minute
	settings.Network.RequestsPerSecond = 2.5

	require.NoError(t, svc.Save(&settings))
	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_StoreError(t *testing.T) {
	svc, store := newTestSettings(nil)
	store.failSet = true
	settings := domain.DefaultAppSettings()

	assert.Error(t, svc.Save(&settings))
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
		check   func(t *testing.T, s *domain.AppSettings)
	}{
		{"int", "retrieval.k", "6", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 6, s.Retrieval.K)
		}},
		{"float", "llm.temperature", "0.3", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.InDelta(t, 0.3, s.LLM.Temperature, 1e-9)
		}},
		{"bool", "chunking.strip_page_numbers", "false", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.False(t, s.Chunking.StripPageNumbers)
		}},
		{"duration", "cache.ttl", "2h", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 2*time.Hour, s.Cache.TTL)
		}},
		{"enum", "retrieval.mode", "vector", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, domain.RetrievalVector, s.Retrieval.Mode)
		}},
		{"key is case-insensitive", " Retrieval.Strategy ", "mmr", nil, func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, domain.StrategyMMR, s.Retrieval.Strategy)
		}},
		{"unknown key", "search.mode", "hybrid", domain.ErrInvalidInput, nil},
		{"unparseable", "retrieval.k", "many", domain.ErrInvalidInput, nil},
		{"overlap not below size", "chunking.overlap", "1000", domain.ErrConfiguration, nil},
		{"lambda out of range", "retrieval.lambda", "1.5", domain.ErrConfiguration, nil},
		{"bad mode", "retrieval.mode", "psychic", domain.ErrConfiguration, nil},
		{"bad provider", "llm.provider", "cohere", domain.ErrConfiguration, nil},
		{"postgres without dsn", "index.backend", "postgres", domain.ErrConfiguration, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSettings(nil)

			err := svc.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			settings, err := svc.Get()
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestSettingsService_Set_PersistsOnlyKey(t *testing.T) {
	svc, store := newTestSettings(nil)

	require.NoError(t, svc.Set("network.max_delay", "10s"))
	assert.Equal(t, map[string]any{"network.max_delay": "10s"}, store.data)
}

func TestSettingsService_Keys(t *testing.T) {
	svc, _ := newTestSettings(nil)

	keys := svc.Keys()
	assert.Equal(t, "embedding.provider", keys[0])
	assert.Contains(t, keys, "retrieval.fetch_k")
	assert.Contains(t, keys, "cache.redis_addr")
	assert.Len(t, keys, len(settingsTable))
}

func TestSettingsService_Lookup(t *testing.T) {
	svc, store := newTestSettings(nil)
	store.data["retrieval.k"] = int64(7)

	v, err := svc.Lookup("retrieval.k")
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	_, err = svc.Lookup("retrieval.nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValue(t *testing.T) {
	settings := domain.DefaultAppSettings()

	v, ok := Value(&settings, "network.timeout")
	require.True(t, ok)
	assert.Equal(t, "30s", v)

	v, ok = Value(&settings, "retrieval.mode")
	require.True(t, ok)
	assert.Equal(t, "hybrid", v)

	_, ok = Value(&settings, "nope")
	assert.False(t, ok)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	svc, store := newTestSettings(map[string]string{EnvOpenAIKey: "sk-env"})

	require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	_, stored := store.data["embedding.api_key"]
	assert.False(t, stored)

	err = svc.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.SetEmbeddingProvider("cohere", "", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	svc, _ := newTestSettings(nil)

	err := svc.SetLLMProvider(domain.AIProviderAnthropic, "", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderAnthropic, "claude-custom", "ant-key"))
	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-custom", settings.LLM.Model)
	assert.Equal(t, "ant-key", settings.LLM.APIKey)
}

func TestSettingsService_Validate(t *testing.T) {
	svc, store := newTestSettings(nil)
	require.NoError(t, svc.Validate())

	store.data["llm.provider"] = "openai"
	err := svc.Validate()
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	store.data["llm.provider"] = "ollama"
	store.data["embedding.provider"] = "anthropic"
	err = svc.Validate()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	svc, _ := newTestSettings(nil)
	require.NoError(t, svc.ValidateEmbeddingConfig())
	require.NoError(t, svc.ValidateLLMConfig())

	svc.aiValidator = &fakeValidator{
		embedErr: domain.ErrEmbeddingUnavailable,
		llmErr:   errors.New("boom"),
	}
	assert.ErrorIs(t, svc.ValidateEmbeddingConfig(), domain.ErrEmbeddingUnavailable)
	assert.EqualError(t, svc.ValidateLLMConfig(), "boom")

	svc.aiValidator = nil
	assert.NoError(t, svc.ValidateLLMConfig())
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	svc, _ := newTestSettings(nil)
	require.NoError(t, svc.Set("chunking.size", "500"))
	require.NoError(t, svc.Set("chunking.overlap", "50"))

	cfg, err := svc.GetPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineConfigFor(domain.ChunkingSettings{
		Size:             500,
		Overlap:          50,
		StripPageNumbers: true,
	}), cfg)
}
