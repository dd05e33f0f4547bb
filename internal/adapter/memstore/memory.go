// Package memstore provides in-memory implementations of the category store
// and vector index, used by tests and by callers that do not need
// persistence.
package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reviewcat/internal/domain"
	"reviewcat/internal/port"
	"reviewcat/internal/vector"
)

// CategoryStore is a non-durable port.CategoryStore.
type CategoryStore struct {
	mu       sync.RWMutex
	cats     map[string]domain.Category
	nextRank int
}

func NewCategoryStore() *CategoryStore {
	return &CategoryStore{cats: make(map[string]domain.Category)}
}

func (s *CategoryStore) List() ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cats := make([]domain.Category, 0, len(s.cats))
	for _, cat := range s.cats {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Rank < cats[j].Rank })
	return cats, nil
}

func (s *CategoryStore) Get(name string) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.cats[domain.NormalizeName(name)]
	return cat, ok
}

func (s *CategoryStore) Add(cat domain.Category) (domain.Category, error) {
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

	s.cats[key] = cat
	s.nextRank++
	return cat, nil
}

func (s *CategoryStore) AddExemplar(name string, ex domain.Exemplar) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeName(name)
	cat, ok := s.cats[key]
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
	s.cats[key] = cat
	return cat, nil
}

func (s *CategoryStore) Merge(loser, winner string) (domain.Category, error) {
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

	s.cats[winnerKey] = winnerCat
	delete(s.cats, loserKey)
	return winnerCat, nil
}

func (s *CategoryStore) Close() error {
	return nil
}

// VectorIndex is a non-durable port.VectorIndex with the same search and
// tie-breaking behavior as the BoltDB-backed index.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]port.IndexEntry
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[string]port.IndexEntry)}
}

func key(category, exemplarID string) string {
	return domain.NormalizeName(category) + "/" + exemplarID
}

func (s *VectorIndex) Upsert(entries []port.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for %s/%s", e.Category, e.ExemplarID)
		}
		s.entries[key(e.Category, e.ExemplarID)] = e
	}
	return nil
}

func (s *VectorIndex) Query(query []float32, k int) ([]port.IndexMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}

	type scored struct {
		match port.IndexMatch
		rank  int
		key   string
	}

	scores := make([]scored, 0, len(s.entries))
	for k, e := range s.entries {
		scores = append(scores, scored{
			match: port.IndexMatch{
				Category:   e.Category,
				ExemplarID: e.ExemplarID,
				Similarity: vector.Cosine(query, e.Vector),
			},
			rank: e.Rank,
			key:  k,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].match.Similarity != scores[j].match.Similarity {
			return scores[i].match.Similarity > scores[j].match.Similarity
		}
		if scores[i].rank != scores[j].rank {
			return scores[i].rank < scores[j].rank
		}
		return scores[i].key < scores[j].key
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]port.IndexMatch, k)
	for i := 0; i < k; i++ {
		results[i] = scores[i].match
	}
	return results, nil
}

func (s *VectorIndex) Has(category, exemplarID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key(category, exemplarID)]
	return ok
}

func (s *VectorIndex) Entries(category string) ([]port.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := domain.NormalizeName(category) + "/"
	var out []port.IndexEntry
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExemplarID < out[j].ExemplarID })
	return out, nil
}

func (s *VectorIndex) Rewrite(oldCategory, newCategory string, newRank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPrefix := domain.NormalizeName(oldCategory) + "/"
	for k, e := range s.entries {
		if strings.HasPrefix(k, oldPrefix) {
			delete(s.entries, k)
			e.Category = newCategory
			e.Rank = newRank
			s.entries[key(newCategory, e.ExemplarID)] = e
		}
	}
	return nil
}

func (s *VectorIndex) Remove(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := domain.NormalizeName(category) + "/"
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *VectorIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
