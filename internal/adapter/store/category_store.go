package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"reviewcat/internal/domain"
)

var bucketCategories = []byte("categories")

// BoltCategoryStore persists categories in BoltDB, one JSON document per
// category keyed by the normalized name. A full in-memory copy backs reads;
// every mutation is a single committed transaction.
type BoltCategoryStore struct {
	db *bbolt.DB
	mu sync.RWMutex
	// keyed by normalized name
	cats     map[string]domain.Category
	nextRank int
}

// NewBoltCategoryStore opens (or creates) the store at path.
func NewBoltCategoryStore(path string) (*BoltCategoryStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCategories, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltCategoryStore{
		db:   db,
		cats: make(map[string]domain.Category),
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// DB exposes the underlying handle so the vector index can share the file.
func (s *BoltCategoryStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltCategoryStore) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCategories)
		return b.ForEach(func(k, v []byte) error {
			var cat domain.Category
			if err := json.Unmarshal(v, &cat); err != nil {
				return fmt.Errorf("corrupt category %q: %w", k, err)
			}
			s.cats[string(k)] = cat
			if cat.Rank >= s.nextRank {
				s.nextRank = cat.Rank + 1
			}
			return nil
		})
	})
}

func (s *BoltCategoryStore) put(cat domain.Category) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cat)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCategories).Put([]byte(domain.NormalizeName(cat.Name)), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	s.cats[domain.NormalizeName(cat.Name)] = cat
	return nil
}

// List returns all categories in creation order.
func (s *BoltCategoryStore) List() ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cats := make([]domain.Category, 0, len(s.cats))
	for _, cat := range s.cats {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Rank < cats[j].Rank })
	return cats, nil
}

// Get looks a category up by fuzzy-normalized name.
func (s *BoltCategoryStore) Get(name string) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.cats[domain.NormalizeName(name)]
	return cat, ok
}

// Add inserts a new category, assigning rank, creation time and any missing
// exemplar ids. A normalized-name collision yields domain.ErrDuplicateCategory.
func (s *BoltCategoryStore) Add(cat domain.Category) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeName(cat.Name)
	if key == "" {
		return domain.Category{}, fmt.Errorf("category name is empty")
	}
	if _, exists := s.cats[key]; exists {
		return domain.Category{}, fmt.Errorf("%w: %s", domain.ErrDuplicateCategory, cat.Name)
	}

	cat.Rank = s.nextRank
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}
	for i := range cat.Exemplars {
		if cat.Exemplars[i].ID == "" {
			cat.Exemplars[i].ID = uuid.NewString()
		}
	}

	if err := s.put(cat); err != nil {
		return domain.Category{}, err
	}
	s.nextRank++
	return cat, nil
}

// AddExemplar appends an exemplar to an existing category. Exemplars with
// duplicate text are dropped silently so re-adding is idempotent.
func (s *BoltCategoryStore) AddExemplar(name string, ex domain.Exemplar) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.cats[domain.NormalizeName(name)]
	if !ok {
		return domain.Category{}, fmt.Errorf("category not found: %s", name)
	}

	for _, existing := range cat.Exemplars {
		if existing.Text == ex.Text {
			return cat, nil
		}
	}

	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	cat.Exemplars = append(append([]domain.Exemplar{}, cat.Exemplars...), ex)

	if err := s.put(cat); err != nil {
		return domain.Category{}, err
	}
	return cat, nil
}

// Merge moves all exemplars of loser into winner and removes loser.
func (s *BoltCategoryStore) Merge(loser, winner string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loserKey := domain.NormalizeName(loser)
	winnerKey := domain.NormalizeName(winner)
	loserCat, ok := s.cats[loserKey]
	if !ok {
		return domain.Category{}, fmt.Errorf("category not found: %s", loser)
	}
	winnerCat, ok := s.cats[winnerKey]
	if !ok {
		return domain.Category{}, fmt.Errorf("category not found: %s", winner)
	}

	seen := make(map[string]bool, len(winnerCat.Exemplars))
	for _, ex := range winnerCat.Exemplars {
		seen[ex.Text] = true
	}
	merged := append([]domain.Exemplar{}, winnerCat.Exemplars...)
	for _, ex := range loserCat.Exemplars {
		if !seen[ex.Text] {
			merged = append(merged, ex)
		}
	}
	winnerCat.Exemplars = merged

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCategories)
		data, err := json.Marshal(winnerCat)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(winnerKey), data); err != nil {
			return err
		}
		return b.Delete([]byte(loserKey))
	})
	if err != nil {
		return domain.Category{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.cats[winnerKey] = winnerCat
	delete(s.cats, loserKey)
	return winnerCat, nil
}

func (s *BoltCategoryStore) Close() error {
	return s.db.Close()
}
