package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qms-rag/internal/vectorindex"
)

// fakeClient is an in-memory stand-in for a Redis connection.
type fakeClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestCache_SetGet(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, Config{})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "emb:1", []float32{0.25, -1}))

	v, ok, err := c.Get(ctx, "emb:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.25, -1}, v)
	assert.Equal(t, DefaultTTL, client.ttls[DefaultPrefix+"emb:1"])
}

func TestCache_Miss(t *testing.T) {
	c := NewWithClient(newFakeClient(), Config{Prefix: "p:"})

	v, ok, err := c.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestCache_GetError(t *testing.T) {
	client := newFakeClient()
	client.getErr = errors.New("connection refused")
	c := NewWithClient(client, Config{})

	_, ok, err := c.Get(context.Background(), "k")

	require.Error(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptValue(t *testing.T) {
	client := newFakeClient()
	client.values[DefaultPrefix+"k"] = "abc"
	c := NewWithClient(client, Config{})

	_, _, err := c.Get(context.Background(), "k")

	assert.Error(t, err)
}

func TestCache_PrefixAndTTL(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, Config{Prefix: "test:", TTL: time.Minute})

	require.NoError(t, c.Set(context.Background(), "k", []float32{1}))

	assert.Equal(t, string(vectorindex.EncodeVector([]float32{1})), client.values["test:k"])
	assert.Equal(t, time.Minute, client.ttls["test:k"])
}

func TestCache_Close(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, Config{})

	require.NoError(t, c.Close())
	assert.True(t, client.closed)
}
