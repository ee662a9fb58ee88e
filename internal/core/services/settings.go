package services

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables consulted when the config file leaves a value empty.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvPostgresDSN  = "QMSRAG_POSTGRES_DSN"
	EnvRedisAddr    = "QMSRAG_REDIS_ADDR"
)

// Config keys holding secrets. They are never written back when they were
// taken from the environment.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedAPIKey = "embedding.api_key"
	keyLLMAPIKey   = "llm.api_key"
	keyPostgresDSN = "index.postgres_dsn"
)

// setting binds a config key to a field of domain.AppSettings.
type setting struct {
	key   string
	field func(s *domain.AppSettings) any
}

// settingsTable lists every settable key in display order.
var settingsTable = []setting{
	{"embedding.provider", func(s *domain.AppSettings) any { return &s.Embedding.Provider }},
	{"embedding.model", func(s *domain.AppSettings) any { return &s.Embedding.Model }},
	{"embedding.base_url", func(s *domain.AppSettings) any { return &s.Embedding.BaseURL }},
	{keyEmbedAPIKey, func(s *domain.AppSettings) any { return &s.Embedding.APIKey }},
	{"llm.provider", func(s *domain.AppSettings) any { return &s.LLM.Provider }},
	{"llm.model", func(s *domain.AppSettings) any { return &s.LLM.Model }},
	{"llm.base_url", func(s *domain.AppSettings) any { return &s.LLM.BaseURL }},
	{keyLLMAPIKey, func(s *domain.AppSettings) any { return &s.LLM.APIKey }},
	{"llm.temperature", func(s *domain.AppSettings) any { return &s.LLM.Temperature }},
	{"chunking.size", func(s *domain.AppSettings) any { return &s.Chunking.Size }},
	{"chunking.overlap", func(s *domain.AppSettings) any { return &s.Chunking.Overlap }},
	{"chunking.strip_page_numbers", func(s *domain.AppSettings) any { return &s.Chunking.StripPageNumbers }},
	{"retrieval.mode", func(s *domain.AppSettings) any { return &s.Retrieval.Mode }},
	{"retrieval.strategy", func(s *domain.AppSettings) any { return &s.Retrieval.Strategy }},
	{"retrieval.k", func(s *domain.AppSettings) any { return &s.Retrieval.K }},
	{"retrieval.fetch_k", func(s *domain.AppSettings) any { return &s.Retrieval.FetchK }},
	{"retrieval.lambda", func(s *domain.AppSettings) any { return &s.Retrieval.Lambda }},
	{"retrieval.context_items", func(s *domain.AppSettings) any { return &s.Retrieval.ContextItems }},
	{"retrieval.max_keywords", func(s *domain.AppSettings) any { return &s.Retrieval.MaxKeywords }},
	{"retrieval.rewrite_query", func(s *domain.AppSettings) any { return &s.Retrieval.RewriteQuery }},
	{"index.backend", func(s *domain.AppSettings) any { return &s.Index.Backend }},
	{"index.collection", func(s *domain.AppSettings) any { return &s.Index.Collection }},
	{"index.data_dir", func(s *domain.AppSettings) any { return &s.Index.DataDir }},
	{keyPostgresDSN, func(s *domain.AppSettings) any { return &s.Index.PostgresDSN }},
	{"procedures.path", func(s *domain.AppSettings) any { return &s.Procedures.Path }},
	{"network.timeout", func(s *domain.AppSettings) any { return &s.Network.Timeout }},
	{"network.max_retries", func(s *domain.AppSettings) any { return &s.Network.MaxRetries }},
	{"network.base_delay", func(s *domain.AppSettings) any { return &s.Network.BaseDelay }},
	{"network.max_delay", func(s *domain.AppSettings) any { return &s.Network.MaxDelay }},
	{"network.requests_per_second", func(s *domain.AppSettings) any { return &s.Network.RequestsPerSecond }},
	{"cache.backend", func(s *domain.AppSettings) any { return &s.Cache.Backend }},
	{"cache.redis_addr", func(s *domain.AppSettings) any { return &s.Cache.RedisAddr }},
	{"cache.ttl", func(s *domain.AppSettings) any { return &s.Cache.TTL }},
	{"cache.size", func(s *domain.AppSettings) any { return &s.Cache.Size }},
}

var durationType = reflect.TypeOf(time.Duration(0))

// SettingsService manages application settings stored in the config file.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get returns the defaults overlaid with the config file and, for values
// the file leaves empty, the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	for _, st := range settingsTable {
		raw, ok := s.configStore.Get(st.key)
		if !ok {
			continue
		}
		if err := assign(st.field(&settings), raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, st.key, err)
		}
	}
	s.applyEnv(&settings)
	return &settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Index.PostgresDSN == "" {
		settings.Index.PostgresDSN = s.getenv(EnvPostgresDSN)
	}
	if settings.Cache.RedisAddr == "" {
		settings.Cache.RedisAddr = s.getenv(EnvRedisAddr)
	}
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

// Save persists application settings. Secrets that came from the
// environment are not written to the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	envSecrets := map[string]string{
		keyEmbedAPIKey: s.envKey(settings.Embedding.Provider),
		keyLLMAPIKey:   s.envKey(settings.LLM.Provider),
		keyPostgresDSN: s.getenv(EnvPostgresDSN),
	}

	for _, st := range settingsTable {
		value := persisted(st.field(settings))
		if secret, ok := envSecrets[st.key]; ok {
			if str, _ := value.(string); str == "" || str == secret {
				continue
			}
		}
		if err := s.configStore.Set(st.key, value); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// Set updates a single setting by its dotted key and persists the result.
// The change is rejected when the resulting settings do not validate.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := assign(st.field(settings), value); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.checkEnum(settings); err != nil {
		return err
	}
	return s.configStore.Set(st.key, persisted(st.field(settings)))
}

// Keys returns the settable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// Lookup returns the current value of key formatted for display.
func (s *SettingsService) Lookup(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	v, ok := Value(settings, key)
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return v, nil
}

// Value formats the current value of key for display.
func Value(settings *domain.AppSettings, key string) (string, bool) {
	st, ok := lookupSetting(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(reflect.ValueOf(st.field(settings)).Elem().Interface()), true
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider == domain.AIProviderAnthropic {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.APIKey = apiKey
	if !provider.IsLocal() {
		settings.Embedding.BaseURL = ""
	}
	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.APIKey = apiKey
	if !provider.IsLocal() {
		settings.LLM.BaseURL = ""
	}
	return s.Save(settings)
}

// Validate checks that the current settings can drive the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.checkEnum(settings); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured (missing API key?)",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured (missing API key?)",
			domain.ErrConfiguration, settings.LLM.Provider)
	}
	return nil
}

func (s *SettingsService) checkEnum(settings *domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", domain.ErrConfiguration, settings.LLM.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration
// derived from the chunking settings.
func (s *SettingsService) GetPipelineConfig() (domain.PipelineConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PipelineConfig{}, err
	}
	return domain.PipelineConfigFor(settings.Chunking), nil
}

// Helper functions for converting between config values and fields.

func lookupSetting(key string) (setting, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, st := range settingsTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

func modelOrDefault(model, def string) string {
	if model != "" {
		return model
	}
	return def
}

// persisted returns the value stored in the config file for a field.
// Durations are stored as strings such as "30s".
func persisted(ptr any) any {
	v := reflect.ValueOf(ptr).Elem()
	switch {
	case v.Type() == durationType:
		return time.Duration(v.Int()).String()
	case v.Kind() == reflect.String:
		return v.String()
	case v.Kind() == reflect.Int:
		return v.Int()
	default:
		return v.Interface()
	}
}

// assign stores raw into the field behind ptr. raw is either a value decoded
// from the config file or a string typed by the user.
func assign(ptr any, raw any) error {
	v := reflect.ValueOf(ptr).Elem()
	str, isString := raw.(string)
	if isString {
		str = strings.TrimSpace(str)
	}

	switch {
	case v.Type() == durationType:
		if !isString {
			return fmt.Errorf("expected a duration string, got %T", raw)
		}
		d, err := time.ParseDuration(str)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))

	case v.Kind() == reflect.String:
		if !isString {
			return fmt.Errorf("expected a string, got %T", raw)
		}
		v.SetString(str)

	case v.Kind() == reflect.Int:
		switch n := raw.(type) {
		case int64:
			v.SetInt(n)
		case int:
			v.SetInt(int64(n))
		case string:
			i, err := strconv.Atoi(str)
			if err != nil {
				return err
			}
			v.SetInt(int64(i))
		default:
			return fmt.Errorf("expected an integer, got %T", raw)
		}

	case v.Kind() == reflect.Float64:
		switch n := raw.(type) {
		case float64:
			v.SetFloat(n)
		case int64:
			v.SetFloat(float64(n))
		case string:
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return err
			}
			v.SetFloat(f)
		default:
			return fmt.Errorf("expected a number, got %T", raw)
		}

	case v.Kind() == reflect.Bool:
		switch b := raw.(type) {
		case bool:
			v.SetBool(b)
		case string:
			parsed, err := strconv.ParseBool(str)
			if err != nil {
				return err
			}
			v.SetBool(parsed)
		default:
			return fmt.Errorf("expected a boolean, got %T", raw)
		}

	default:
		return fmt.Errorf("unsupported setting type %s", v.Type())
	}
	return nil
}
