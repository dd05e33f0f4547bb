package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewcat/internal/adapter/memstore"
	"reviewcat/internal/domain"
)

func TestConsolidateMergesNearDuplicates(t *testing.T) {
	vectors := map[string][]float32{
		"rider was rude":       {1, 0, 0},
		"delivery guy shouted": {0.99, 0.14107, 0},
		"great":                {0, 1, 0},
	}
	seeds := []domain.Category{
		{Name: "Delivery partner rude", Sentiment: domain.SentimentNegative, Exemplars: []domain.Exemplar{{Text: "rider was rude"}}},
		{Name: "Delivery person impolite", Sentiment: domain.SentimentNegative, Exemplars: []domain.Exemplar{{Text: "delivery guy shouted"}}},
		{Name: "Positive Feedback", Sentiment: domain.SentimentPositive, Exemplars: []domain.Exemplar{{Text: "great"}}},
	}

	embedder := &fakeEmbedder{vectors: vectors, dim: 3}
	c, st := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	merged, err := c.Consolidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	cats, err := st.List()
	require.NoError(t, err)
	require.Len(t, cats, 2)

	// The older category survives and absorbs the exemplars.
	winner, ok := st.Get("Delivery partner rude")
	require.True(t, ok)
	assert.Len(t, winner.Exemplars, 2)

	_, ok = st.Get("Delivery person impolite")
	assert.False(t, ok)

	entries, err := c.index.Entries("Delivery partner rude")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "Delivery partner rude", e.Category)
		assert.Equal(t, winner.Rank, e.Rank)
	}

	gone, err := c.index.Entries("Delivery person impolite")
	require.NoError(t, err)
	assert.Empty(t, gone)

	// A second pass finds nothing left to merge.
	merged, err = c.Consolidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
}

func TestConsolidateIsConservative(t *testing.T) {
	// Centroid similarity 0.8 sits above the match threshold but below the
	// consolidation threshold; related categories must stay separate.
	vectors := map[string][]float32{
		"rider was rude": {1, 0, 0},
		"order was late": {0.8, 0.6, 0},
	}
	seeds := []domain.Category{
		{Name: "Delivery partner rude", Exemplars: []domain.Exemplar{{Text: "rider was rude"}}},
		{Name: "Delivery issue", Exemplars: []domain.Exemplar{{Text: "order was late"}}},
	}

	embedder := &fakeEmbedder{vectors: vectors, dim: 3}
	c, st := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	merged, err := c.Consolidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, merged)

	cats, err := st.List()
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestConsolidateRequiresEmbeddings(t *testing.T) {
	seeds := []domain.Category{
		{Name: "Delivery issue", Exemplars: []domain.Exemplar{{Text: "order was late"}}},
	}
	embedder := &fakeEmbedder{err: domain.ErrProviderUnavailable}

	st := memstore.NewCategoryStore()
	idx := memstore.NewVectorIndex()
	c := NewCategorizer(embedder, idx, st, &fakeDiscovery{}, testMatcher(), testOptions(), nil)
	require.NoError(t, c.Seed(seeds))

	_, err := c.Consolidate(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
