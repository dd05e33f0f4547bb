package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	texts []string
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts = append(e.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int    { return 2 }
func (e *countingEmbedder) ModelName() string { return "counting" }

func TestEmbeddingCacheGetPut(t *testing.T) {
	c := NewEmbeddingCache(10, time.Hour)

	_, hit := c.Get("hello")
	assert.False(t, hit)

	c.Put("hello", []float32{1, 2})
	vec, hit := c.Get("hello")
	require.True(t, hit)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, 1, c.Size())
}

func TestEmbeddingCacheTTLExpiry(t *testing.T) {
	c := NewEmbeddingCache(10, 10*time.Millisecond)

	c.Put("hello", []float32{1})
	time.Sleep(20 * time.Millisecond)

	_, hit := c.Get("hello")
	assert.False(t, hit)
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCacheLRUEviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Hour)

	c.Put("a", []float32{1})
	c.Put("b", []float32{2})

	// Touch "a" so "b" becomes the eviction candidate.
	_, hit := c.Get("a")
	require.True(t, hit)

	c.Put("c", []float32{3})
	assert.Equal(t, 2, c.Size())

	_, hit = c.Get("b")
	assert.False(t, hit)
	_, hit = c.Get("a")
	assert.True(t, hit)
	_, hit = c.Get("c")
	assert.True(t, hit)
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Hour))

	first, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.calls)

	// One cached text, one new: only the miss reaches the provider.
	second, err := e.Embed(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, inner.texts)

	// All cached: no provider call at all.
	_, err = e.Embed(context.Background(), []string{"beta", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
