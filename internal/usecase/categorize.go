package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"reviewcat/internal/adapter/pattern"
	"reviewcat/internal/domain"
	"reviewcat/internal/port"
)

// Options carries the categorizer tunables. Thresholds are product decisions
// surfaced through configuration, not hard contracts.
type Options struct {
	// MatchThreshold is the minimum cosine similarity for a vector-tier match.
	MatchThreshold float64
	// ConsolidationThreshold is the minimum centroid similarity for merging
	// two categories. Must sit above MatchThreshold so consolidation stays
	// conservative.
	ConsolidationThreshold float64
	// CallTimeout bounds every external call. Timeout counts as outage.
	CallTimeout time.Duration
	// MaxWorkers bounds concurrent review classification.
	MaxWorkers int
	// RateLimit caps provider calls per second. Zero disables limiting.
	RateLimit float64
}

func (o *Options) applyDefaults() {
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = 0.75
	}
	if o.ConsolidationThreshold <= 0 {
		o.ConsolidationThreshold = 0.92
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 4
	}
}

// Categorizer runs the three-tier classification pipeline:
// vector lookup, LLM discovery, pattern fallback. It is the only component
// that mutates the category store and vector index, and it serializes those
// mutations so concurrent workers cannot create duplicate categories.
type Categorizer struct {
	embedder  port.Embedder
	index     port.VectorIndex
	store     port.CategoryStore
	discovery port.CategoryDiscovery
	matcher   *pattern.Matcher
	opts      Options
	log       *zap.Logger
	limiter   *rate.Limiter

	// mu serializes store+index mutation (discovery path, corrections,
	// consolidation) and keeps both views atomic for readers.
	mu sync.Mutex
}

func NewCategorizer(
	embedder port.Embedder,
	index port.VectorIndex,
	store port.CategoryStore,
	discovery port.CategoryDiscovery,
	matcher *pattern.Matcher,
	opts Options,
	log *zap.Logger,
) *Categorizer {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Categorizer{
		embedder:  embedder,
		index:     index,
		store:     store,
		discovery: discovery,
		matcher:   matcher,
		opts:      opts,
		log:       log,
		limiter:   limiter,
	}
}

// Seed inserts any seed categories missing from the store. Existing
// categories are left untouched; embedding happens lazily on first lookup.
func (c *Categorizer) Seed(seeds []domain.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, seed := range seeds {
		if _, ok := c.store.Get(seed.Name); ok {
			continue
		}
		if _, err := c.store.Add(seed); err != nil && !errors.Is(err, domain.ErrDuplicateCategory) {
			return err
		}
	}
	return nil
}

// Categorize classifies one review. It never fails: provider and discovery
// errors degrade tier by tier down to the pattern matcher.
func (c *Categorizer) Categorize(ctx context.Context, review domain.Review) domain.Result {
	text := strings.TrimSpace(review.Text)
	if text == "" {
		return c.patternResult(review, text)
	}

	// Tier 1: vector lookup.
	if err := c.ensureIndexed(ctx); err != nil {
		c.log.Warn("exemplar indexing unavailable, degrading to pattern tier",
			zap.String("review", review.ID), zap.Error(err))
		return c.patternResult(review, text)
	}

	vec, err := c.embedOne(ctx, text)
	if err != nil {
		c.log.Warn("embedding unavailable, degrading to pattern tier",
			zap.String("review", review.ID), zap.Error(err))
		return c.patternResult(review, text)
	}

	matches, err := c.index.Query(vec, 1)
	if err != nil {
		c.log.Warn("vector query failed, degrading to pattern tier",
			zap.String("review", review.ID), zap.Error(err))
		return c.patternResult(review, text)
	}
	if len(matches) > 0 && matches[0].Similarity >= c.opts.MatchThreshold {
		return domain.Result{
			ReviewID:   review.ID,
			Category:   matches[0].Category,
			Tier:       domain.TierVector,
			Confidence: matches[0].Similarity,
		}
	}

	// Tier 2: LLM discovery.
	res, err := c.discover(ctx, review, text, vec)
	if err != nil {
		c.log.Warn("discovery unavailable, degrading to pattern tier",
			zap.String("review", review.ID), zap.Error(err))
		return c.patternResult(review, text)
	}
	return res
}

// CategorizeAll classifies a batch with a bounded worker pool, preserving
// input order. progress may be nil.
func (c *Categorizer) CategorizeAll(ctx context.Context, revs []domain.Review, progress func(done, total int)) []domain.Result {
	results := make([]domain.Result, len(revs))

	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxWorkers)

	for i, review := range revs {
		i, review := i, review
		g.Go(func() error {
			results[i] = c.Categorize(ctx, review)
			if progress != nil {
				progress(int(done.Add(1)), len(revs))
			}
			return nil
		})
	}

	// Workers never return errors; classification degrades instead of failing.
	_ = g.Wait()
	return results
}

// Counts aggregates results per category for the presentation layer.
func Counts(results []domain.Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Category]++
	}
	return counts
}

// discover runs the LLM tier. It owns the only store/index mutation on the
// classification path.
func (c *Categorizer) discover(ctx context.Context, review domain.Review, text string, vec []float32) (domain.Result, error) {
	existing, err := c.store.List()
	if err != nil {
		return domain.Result{}, err
	}

	dctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	proposal, err := c.discovery.Propose(dctx, text, existing)
	if errors.Is(err, domain.ErrAmbiguousResponse) {
		c.log.Warn("ambiguous discovery proposal, classifying as Other",
			zap.String("review", review.ID), zap.Error(err))
		return domain.Result{ReviewID: review.ID, Category: domain.OtherCategory, Tier: domain.TierLLM}, nil
	}
	if err != nil {
		if dctx.Err() != nil {
			err = domain.ErrServiceUnavailable
		}
		return domain.Result{}, err
	}

	name := strings.TrimSpace(proposal.Name)
	if name == "" {
		return domain.Result{ReviewID: review.ID, Category: domain.OtherCategory, Tier: domain.TierLLM}, nil
	}

	if !proposal.IsNew {
		if cat, ok := c.store.Get(name); ok {
			name = cat.Name
		}
		return domain.Result{ReviewID: review.ID, Category: name, Tier: domain.TierLLM}, nil
	}

	return c.persistProposal(review, text, vec, proposal), nil
}

// persistProposal creates the proposed category and indexes the review text
// as its first exemplar, all inside the mutation lock. A persistence failure
// degrades to a transient (unpersisted) result rather than failing the review.
func (c *Categorizer) persistProposal(review domain.Review, text string, vec []float32, proposal domain.ProposedCategory) domain.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex := domain.Exemplar{ID: uuid.NewString(), Text: text}
	stored, err := c.store.Add(domain.Category{
		Name:      proposal.Name,
		Sentiment: proposal.Sentiment,
		Exemplars: []domain.Exemplar{ex},
		Dynamic:   true,
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateCategory):
		// Another worker (or an earlier batch) created it first; record the
		// text as an additional exemplar instead.
		cat, aerr := c.store.AddExemplar(proposal.Name, ex)
		if aerr != nil {
			c.log.Error("failed to record exemplar under existing category",
				zap.String("category", proposal.Name), zap.Error(aerr))
			return domain.Result{ReviewID: review.ID, Category: proposal.Name, Tier: domain.TierLLM}
		}
		c.upsertExemplar(cat, ex, vec)
		return domain.Result{ReviewID: review.ID, Category: cat.Name, Tier: domain.TierLLM}

	case err != nil:
		c.log.Error("category not persisted, returning transient classification",
			zap.String("category", proposal.Name), zap.Error(err))
		return domain.Result{ReviewID: review.ID, Category: proposal.Name, Tier: domain.TierLLM, NewCategory: true}

	default:
		c.log.Info("new category discovered",
			zap.String("category", stored.Name),
			zap.String("rationale", proposal.Rationale))
		c.upsertExemplar(stored, stored.Exemplars[0], vec)
		return domain.Result{ReviewID: review.ID, Category: stored.Name, Tier: domain.TierLLM, NewCategory: true}
	}
}

func (c *Categorizer) upsertExemplar(cat domain.Category, ex domain.Exemplar, vec []float32) {
	err := c.index.Upsert([]port.IndexEntry{{
		Category:   cat.Name,
		Rank:       cat.Rank,
		ExemplarID: ex.ID,
		Vector:     vec,
	}})
	if err != nil {
		c.log.Error("failed to index exemplar",
			zap.String("category", cat.Name), zap.Error(err))
	}
}

func (c *Categorizer) patternResult(review domain.Review, text string) domain.Result {
	return domain.Result{
		ReviewID: review.ID,
		Category: c.matcher.Match(text),
		Tier:     domain.TierPattern,
	}
}

// embedOne embeds a single text with the rate limiter and per-call timeout
// applied. Timeouts surface as provider unavailability.
func (c *Categorizer) embedOne(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.ErrProviderUnavailable
		}
	}

	ectx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	vecs, err := c.embedder.Embed(ectx, []string{text})
	if err != nil {
		if ectx.Err() != nil {
			return nil, domain.ErrProviderUnavailable
		}
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, domain.ErrProviderUnavailable
	}
	return vecs[0], nil
}

// ensureIndexed embeds and indexes any store exemplars missing from the
// vector index. Embeddings are cached upstream, so the cost is proportional
// to new exemplars only.
func (c *Categorizer) ensureIndexed(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureIndexedLocked(ctx)
}

func (c *Categorizer) ensureIndexedLocked(ctx context.Context) error {
	cats, err := c.store.List()
	if err != nil {
		return err
	}

	var missing []port.IndexEntry
	var texts []string
	for _, cat := range cats {
		for _, ex := range cat.Exemplars {
			if c.index.Has(cat.Name, ex.ID) {
				continue
			}
			missing = append(missing, port.IndexEntry{
				Category:   cat.Name,
				Rank:       cat.Rank,
				ExemplarID: ex.ID,
			})
			texts = append(texts, ex.Text)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	ectx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	vecs, err := c.embedder.Embed(ectx, texts)
	if err != nil {
		if ectx.Err() != nil {
			return domain.ErrProviderUnavailable
		}
		return err
	}
	if len(vecs) != len(missing) {
		return domain.ErrProviderUnavailable
	}
	for i := range missing {
		missing[i].Vector = vecs[i]
	}

	return c.index.Upsert(missing)
}
