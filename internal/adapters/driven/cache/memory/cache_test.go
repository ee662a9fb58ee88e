package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New(0, 0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []float32{1, 2}))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)
}

func TestCache_CopiesValues(t *testing.T) {
	c := New(4, time.Minute)
	ctx := context.Background()
	in := []float32{1, 2}
	require.NoError(t, c.Set(ctx, "k", in))
	in[0] = 9

	v, _, _ := c.Get(ctx, "k")
	v[1] = 9

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []float32{1, 2}, again)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprint(i), []float32{float32(i)}))
	}

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "0")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "2")
	assert.True(t, ok)
}

func TestCache_Expires(t *testing.T) {
	c := New(2, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []float32{1}))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCache_Close(t *testing.T) {
	c := New(2, time.Minute)
	require.NoError(t, c.Set(context.Background(), "k", []float32{1}))

	require.NoError(t, c.Close())
	assert.Zero(t, c.Len())
}
