package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reviewcat/internal/domain"
)

// IncorporateCorrection records operator feedback: the review text becomes a
// new exemplar of the corrected category, creating the category when absent,
// and the vector index is updated. Indexing is best-effort; if the embedding
// provider is down the exemplar is persisted and picked up by the lazy
// indexing pass later.
func (c *Categorizer) IncorporateCorrection(ctx context.Context, reviewText, category string) error {
	text := strings.TrimSpace(reviewText)
	if text == "" {
		return fmt.Errorf("correction text is empty")
	}
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("correction category is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var cat domain.Category
	var err error
	if _, ok := c.store.Get(category); !ok {
		cat, err = c.store.Add(domain.Category{
			Name:      category,
			Sentiment: domain.SentimentNeutral,
			Exemplars: []domain.Exemplar{{ID: uuid.NewString(), Text: text}},
			Dynamic:   true,
		})
		if errors.Is(err, domain.ErrDuplicateCategory) {
			cat, err = c.store.AddExemplar(category, domain.Exemplar{Text: text})
		}
	} else {
		cat, err = c.store.AddExemplar(category, domain.Exemplar{Text: text})
	}
	if err != nil {
		return err
	}

	// The store may have deduplicated or re-identified the exemplar.
	var ex domain.Exemplar
	for _, e := range cat.Exemplars {
		if e.Text == text {
			ex = e
			break
		}
	}
	if ex.ID == "" {
		return fmt.Errorf("exemplar not recorded for category %s", cat.Name)
	}

	vec, err := c.embedOne(ctx, text)
	if err != nil {
		c.log.Warn("correction stored but not yet indexed",
			zap.String("category", cat.Name), zap.Error(err))
		return nil
	}

	c.upsertExemplar(cat, ex, vec)
	return nil
}
