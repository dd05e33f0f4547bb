package port

import "reviewcat/internal/domain"

// CategoryStore is the durable mapping of category name to exemplars and
// metadata. Names are unique after normalization; every mutation is flushed
// before it returns.
type CategoryStore interface {
	// List returns all categories in creation (rank) order.
	List() ([]domain.Category, error)

	// Get looks a category up by fuzzy-normalized name.
	Get(name string) (domain.Category, bool)

	// Add inserts a new category, assigning its rank and creation time.
	// Returns domain.ErrDuplicateCategory if the normalized name exists.
	Add(cat domain.Category) (domain.Category, error)

	// AddExemplar appends an exemplar to an existing category.
	AddExemplar(name string, ex domain.Exemplar) (domain.Category, error)

	// Merge moves all exemplars of loser into winner and removes loser.
	Merge(loser, winner string) (domain.Category, error)

	Close() error
}
