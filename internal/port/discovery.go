package port

import (
	"context"

	"reviewcat/internal/domain"
)

// CategoryDiscovery asks a language model to place an unmatched review into
// an existing category or to propose a genuinely new one.
type CategoryDiscovery interface {
	// Propose returns a category proposal for the review text.
	// Fails with domain.ErrServiceUnavailable when the service cannot be
	// reached and domain.ErrAmbiguousResponse when the answer is unusable.
	Propose(ctx context.Context, reviewText string, existing []domain.Category) (domain.ProposedCategory, error)

	// ModelName returns the name of the model backing the service.
	ModelName() string
}

// ReviewSource supplies reviews for a date key. The core does not know the
// underlying storage format.
type ReviewSource interface {
	Load(dateKey string) ([]domain.Review, error)
}
