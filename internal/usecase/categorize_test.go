package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewcat/internal/adapter/memstore"
	"reviewcat/internal/adapter/pattern"
	"reviewcat/internal/domain"
	"reviewcat/internal/port"
)

// fakeEmbedder returns fixture vectors per text. Unknown texts embed to a
// vector orthogonal to all fixtures.
type fakeEmbedder struct {
	vectors map[string][]float32
	dim     int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, f.dim)
		v[f.dim-1] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeDiscovery struct {
	proposal domain.ProposedCategory
	err      error
	calls    int
}

func (f *fakeDiscovery) Propose(context.Context, string, []domain.Category) (domain.ProposedCategory, error) {
	f.calls++
	if f.err != nil {
		return domain.ProposedCategory{}, f.err
	}
	return f.proposal, nil
}

func (f *fakeDiscovery) ModelName() string { return "fake" }

func testMatcher() *pattern.Matcher {
	return pattern.NewMatcher([]pattern.Rule{
		pattern.CompileKeywords("Delivery issue", []string{"late", "delivery delay"}),
		pattern.CompileKeywords("Food stale", []string{"food was cold", "stale"}),
		pattern.CompileKeywords("Positive Feedback", []string{"great", "love"}),
	})
}

func testOptions() Options {
	return Options{
		MatchThreshold:         0.75,
		ConsolidationThreshold: 0.92,
		CallTimeout:            time.Second,
		MaxWorkers:             2,
	}
}

// seedSet is the scenario category set with one exemplar each, embedded on
// orthogonal axes of a 4-dimensional space.
func seedSet() ([]domain.Category, map[string][]float32) {
	vectors := map[string][]float32{
		"order arrived late": {1, 0, 0, 0},
		"great":              {0, 1, 0, 0},
		"something else":     {0, 0, 1, 0},
	}
	seeds := []domain.Category{
		{Name: "Delivery issue", Sentiment: domain.SentimentNegative, Exemplars: []domain.Exemplar{{Text: "order arrived late"}}},
		{Name: "Positive Feedback", Sentiment: domain.SentimentPositive, Exemplars: []domain.Exemplar{{Text: "great"}}},
		{Name: "Other", Sentiment: domain.SentimentNeutral, Exemplars: []domain.Exemplar{{Text: "something else"}}},
	}
	return seeds, vectors
}

func newTestCategorizer(t *testing.T, embedder port.Embedder, disc port.CategoryDiscovery, seeds []domain.Category) (*Categorizer, port.CategoryStore) {
	t.Helper()

	st := memstore.NewCategoryStore()
	idx := memstore.NewVectorIndex()
	c := NewCategorizer(embedder, idx, st, disc, testMatcher(), testOptions(), nil)
	require.NoError(t, c.Seed(seeds))
	return c, st
}

func TestCategorizeVectorTier(t *testing.T) {
	seeds, vectors := seedSet()
	// cosine against "order arrived late" is exactly 0.91
	vectors["Rider was 2 hours late"] = []float32{0.91, 0.41461, 0, 0}

	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	c, _ := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "Rider was 2 hours late"})

	assert.Equal(t, "Delivery issue", res.Category)
	assert.Equal(t, domain.TierVector, res.Tier)
	assert.InDelta(t, 0.91, res.Confidence, 0.01)
	assert.False(t, res.NewCategory)
}

func TestCategorizeDiscoversNewCategory(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	disc := &fakeDiscovery{proposal: domain.ProposedCategory{
		Name:      "Refund delay",
		Sentiment: domain.SentimentNegative,
		IsNew:     true,
	}}
	c, st := newTestCategorizer(t, embedder, disc, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "Refund still not processed"})

	require.Equal(t, "Refund delay", res.Category)
	assert.Equal(t, domain.TierLLM, res.Tier)
	assert.True(t, res.NewCategory)
	assert.Equal(t, 1, disc.calls)

	cat, ok := st.Get("Refund delay")
	require.True(t, ok)
	assert.True(t, cat.Dynamic)
	require.Len(t, cat.Exemplars, 1)
	assert.Equal(t, "Refund still not processed", cat.Exemplars[0].Text)

	// An identical review now matches its own exemplar through the vector tier.
	res2 := c.Categorize(context.Background(), domain.Review{ID: "r2", Text: "Refund still not processed"})
	assert.Equal(t, "Refund delay", res2.Category)
	assert.Equal(t, domain.TierVector, res2.Tier)
	assert.InDelta(t, 1.0, res2.Confidence, 1e-6)
	assert.Equal(t, 1, disc.calls, "discovery must not be consulted again")
}

func TestCategorizeReusesExistingCategory(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	disc := &fakeDiscovery{proposal: domain.ProposedCategory{
		Name:  "Positive Feedback",
		IsNew: false,
	}}
	c, st := newTestCategorizer(t, embedder, disc, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "pretty decent overall"})

	assert.Equal(t, "Positive Feedback", res.Category)
	assert.Equal(t, domain.TierLLM, res.Tier)
	assert.False(t, res.NewCategory)

	cats, err := st.List()
	require.NoError(t, err)
	assert.Len(t, cats, 3, "no category added on reuse")
}

func TestCategorizeRecoversDuplicateProposal(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	// The model claims a "new" category that collides after normalization.
	disc := &fakeDiscovery{proposal: domain.ProposedCategory{
		Name:  "delivery issue!",
		IsNew: true,
	}}
	c, st := newTestCategorizer(t, embedder, disc, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "some unmatched complaint"})

	assert.Equal(t, domain.TierLLM, res.Tier)
	assert.False(t, res.NewCategory)

	cats, err := st.List()
	require.NoError(t, err)
	assert.Len(t, cats, 3, "duplicate proposal must not grow the category set")

	cat, ok := st.Get("Delivery issue")
	require.True(t, ok)
	assert.Len(t, cat.Exemplars, 2, "text recorded as exemplar of the existing category")
}

func TestCategorizeAmbiguousProposal(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	disc := &fakeDiscovery{err: fmt.Errorf("%w: empty completion", domain.ErrAmbiguousResponse)}
	c, _ := newTestCategorizer(t, embedder, disc, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "some unmatched complaint"})

	assert.Equal(t, domain.OtherCategory, res.Category)
	assert.Equal(t, domain.TierLLM, res.Tier)
}

func TestCategorizeTotalOutage(t *testing.T) {
	seeds, _ := seedSet()
	embedder := &fakeEmbedder{err: domain.ErrProviderUnavailable}
	disc := &fakeDiscovery{err: domain.ErrServiceUnavailable}

	st := memstore.NewCategoryStore()
	idx := memstore.NewVectorIndex()
	c := NewCategorizer(embedder, idx, st, disc, testMatcher(), testOptions(), nil)
	require.NoError(t, c.Seed(seeds))

	revs := []domain.Review{
		{ID: "r1", Text: "order was two hours late"},
		{ID: "r2", Text: "food was cold and soggy"},
		{ID: "r3", Text: "great app, love it"},
		{ID: "r4", Text: "nothing matches this one"},
		{ID: "r5", Text: "stale bread"},
	}

	results := c.CategorizeAll(context.Background(), revs, nil)

	require.Len(t, results, len(revs))
	for _, res := range results {
		assert.Equal(t, domain.TierPattern, res.Tier)
		assert.NotEmpty(t, res.Category)
	}
	assert.Equal(t, "Delivery issue", results[0].Category)
	assert.Equal(t, "Food stale", results[1].Category)
	assert.Equal(t, "Positive Feedback", results[2].Category)
	assert.Equal(t, domain.OtherCategory, results[3].Category)
	assert.Equal(t, 0, disc.calls, "discovery is unreachable before it is consulted")
}

func TestCategorizeRateLimitedDegrades(t *testing.T) {
	seeds, _ := seedSet()
	embedder := &fakeEmbedder{err: domain.ErrProviderRateLimited}
	c, _ := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "order was late"})
	assert.Equal(t, domain.TierPattern, res.Tier)
	assert.Equal(t, "Delivery issue", res.Category)
}

func TestCategorizeEmptyText(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	c, _ := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "   "})
	assert.Equal(t, domain.OtherCategory, res.Category)
	assert.Equal(t, domain.TierPattern, res.Tier)
}

func TestCategorizeAllPreservesOrder(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	disc := &fakeDiscovery{err: domain.ErrServiceUnavailable}
	c, _ := newTestCategorizer(t, embedder, disc, seeds)

	var revs []domain.Review
	for i := 0; i < 20; i++ {
		revs = append(revs, domain.Review{ID: fmt.Sprintf("r%02d", i), Text: fmt.Sprintf("review number %d", i)})
	}

	results := c.CategorizeAll(context.Background(), revs, nil)

	require.Len(t, results, len(revs))
	for i, res := range results {
		assert.Equal(t, revs[i].ID, res.ReviewID)
	}
}

// failingStore simulates a broken persistence layer on Add.
type failingStore struct {
	*memstore.CategoryStore
}

func (s *failingStore) Add(domain.Category) (domain.Category, error) {
	return domain.Category{}, fmt.Errorf("%w: disk full", domain.ErrPersistence)
}

func TestCategorizePersistenceFailureIsTransient(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	disc := &fakeDiscovery{proposal: domain.ProposedCategory{Name: "Refund delay", IsNew: true}}

	inner := memstore.NewCategoryStore()
	for _, seed := range seeds {
		_, err := inner.Add(seed)
		require.NoError(t, err)
	}
	st := &failingStore{CategoryStore: inner}
	idx := memstore.NewVectorIndex()
	c := NewCategorizer(embedder, idx, st, disc, testMatcher(), testOptions(), nil)

	res := c.Categorize(context.Background(), domain.Review{ID: "r1", Text: "Refund still not processed"})

	// The proposed label is still returned, just not persisted.
	assert.Equal(t, "Refund delay", res.Category)
	assert.Equal(t, domain.TierLLM, res.Tier)
	assert.True(t, res.NewCategory)

	_, ok := inner.Get("Refund delay")
	assert.False(t, ok)
}

func TestSeedIsIdempotent(t *testing.T) {
	seeds, vectors := seedSet()
	embedder := &fakeEmbedder{vectors: vectors, dim: 4}
	c, st := newTestCategorizer(t, embedder, &fakeDiscovery{}, seeds)

	require.NoError(t, c.Seed(seeds))

	cats, err := st.List()
	require.NoError(t, err)
	assert.Len(t, cats, 3)
}
