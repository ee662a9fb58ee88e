package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
)

const fakeDims = 32

// fakeEmbedder hashes words into a bag-of-words vector, so texts sharing
// words are similar and identical texts embed identically.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	batches   int
	failBatch int // 1-based batch number that fails; 0 never fails
	err       error
}

func embedText(text string) []float32 {
	v := make([]float32, fakeDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,;:()")))
		v[h.Sum32()%fakeDims]++
	}
	v[0] += 0.01 // never all-zero
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return embedText(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.failBatch > 0 && f.batches == f.failBatch {
		return nil, errors.New("embedding backend exploded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return fakeDims }
func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// fakeLLM records completion requests and returns a canned reply.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []driven.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) ModelName() string            { return "fake-llm" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakePrompts serves fixed templates.
type fakePrompts map[string]string

func (p fakePrompts) Load(name string) (string, error) {
	if t, ok := p[name]; ok {
		return t, nil
	}
	return "", domain.ErrNotFound
}

func (p fakePrompts) Reload() {}

// fakeConfigStore is an in-memory driven.ConfigStore.
type fakeConfigStore struct {
	data    map[string]any
	failSet bool
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{data: make(map[string]any)}
}

func (c *fakeConfigStore) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeConfigStore) GetString(key string) string {
	s, _ := c.data[key].(string)
	return s
}

func (c *fakeConfigStore) GetInt(key string) int {
	switch n := c.data[key].(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func (c *fakeConfigStore) GetFloat(key string) float64 {
	switch n := c.data[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func (c *fakeConfigStore) GetBool(key string) bool {
	b, _ := c.data[key].(bool)
	return b
}

func (c *fakeConfigStore) GetStringSlice(key string) []string {
	s, _ := c.data[key].([]string)
	return s
}

func (c *fakeConfigStore) Set(key string, value any) error {
	if c.failSet {
		return errors.New("disk full")
	}
	c.data[key] = value
	return nil
}

func (c *fakeConfigStore) Save() error  { return nil }
func (c *fakeConfigStore) Load() error  { return nil }
func (c *fakeConfigStore) Path() string { return "memory" }

// fakeValidator records validation calls.
type fakeValidator struct {
	embedErr error
	llmErr   error
}

func (v *fakeValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return v.embedErr }
func (v *fakeValidator) ValidateLLM(_ *domain.LLMSettings) error             { return v.llmErr }
