package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodec(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}

	blob := EncodeVector(v)
	require.Len(t, blob, 16)

	got, err := DecodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestVectorCodec_Empty(t *testing.T) {
	assert.Nil(t, EncodeVector(nil))

	got, err := DecodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeVector_BadLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMetadataCodec(t *testing.T) {
	s, err := EncodeMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	m, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)

	m, err = DecodeMetadata("null")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = DecodeMetadata("{")
	assert.Error(t, err)
}

func TestCanonicalMetadata(t *testing.T) {
	m, err := CanonicalMetadata(map[string]any{
		"source": "manual.pdf",
		"pages":  3,
		"tags":   []string{"a", "b"},
	})

	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", m["source"])
	assert.Equal(t, float64(3), m["pages"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])
}
