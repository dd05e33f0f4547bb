package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reviewcat/internal/vector"
)

// Consolidate merges near-duplicate categories. Two categories merge when
// the cosine similarity of their exemplar centroids reaches the
// consolidation threshold; the newer category folds into the older one and
// its index entries are rewritten under the surviving name. The whole pass
// runs inside the mutation lock so readers never observe a half-merged set.
// Returns the number of merges performed.
func (c *Categorizer) Consolidate(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureIndexedLocked(ctx); err != nil {
		return 0, fmt.Errorf("consolidation needs exemplar embeddings: %w", err)
	}

	cats, err := c.store.List()
	if err != nil {
		return 0, err
	}

	type survivor struct {
		name     string
		rank     int
		centroid []float32
	}

	var survivors []survivor
	merged := 0

	// Walk in creation order so the oldest category always survives.
	for _, cat := range cats {
		centroid, err := c.categoryCentroid(cat.Name)
		if err != nil {
			return merged, err
		}
		if centroid == nil {
			survivors = append(survivors, survivor{name: cat.Name, rank: cat.Rank})
			continue
		}

		absorbed := false
		for i, s := range survivors {
			if s.centroid == nil {
				continue
			}
			sim := vector.Cosine(centroid, s.centroid)
			if sim < c.opts.ConsolidationThreshold {
				continue
			}

			if _, err := c.store.Merge(cat.Name, s.name); err != nil {
				return merged, err
			}
			if err := c.index.Rewrite(cat.Name, s.name, s.rank); err != nil {
				return merged, err
			}

			c.log.Info("consolidated near-duplicate categories",
				zap.String("merged", cat.Name),
				zap.String("into", s.name),
				zap.Float64("similarity", sim))

			// The winner absorbed new exemplars; refresh its centroid.
			refreshed, err := c.categoryCentroid(s.name)
			if err != nil {
				return merged + 1, err
			}
			survivors[i].centroid = refreshed

			merged++
			absorbed = true
			break
		}

		if !absorbed {
			survivors = append(survivors, survivor{name: cat.Name, rank: cat.Rank, centroid: centroid})
		}
	}

	return merged, nil
}

func (c *Categorizer) categoryCentroid(name string) ([]float32, error) {
	entries, err := c.index.Entries(name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(entries))
	for i, e := range entries {
		vecs[i] = e.Vector
	}
	return vector.Centroid(vecs), nil
}
