package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.etcd.io/bbolt"

	"reviewcat/internal/domain"
	"reviewcat/internal/port"
	"reviewcat/internal/vector"
)

var bucketVectors = []byte("vectors")

// BoltVectorIndex implements port.VectorIndex on BoltDB. Entries are keyed
// by normalized category name plus exemplar id, so upserts are idempotent.
// Uses brute-force cosine search over an in-memory copy; fine for the
// hundreds of exemplars a category set carries.
type BoltVectorIndex struct {
	db *bbolt.DB
	mu sync.RWMutex
	// keyed by normalized-category + "/" + exemplar id
	entries map[string]port.IndexEntry
}

type storedEntry struct {
	Category string    `json:"category"`
	Rank     int       `json:"rank"`
	Vector   []float32 `json:"v"`
}

func entryKey(category, exemplarID string) string {
	return domain.NormalizeName(category) + "/" + exemplarID
}

// NewBoltVectorIndex creates a vector index sharing the category store's db.
func NewBoltVectorIndex(db *bbolt.DB) (*BoltVectorIndex, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	idx := &BoltVectorIndex{
		db:      db,
		entries: make(map[string]port.IndexEntry),
	}
	if err := idx.load(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return idx, nil
}

func (s *BoltVectorIndex) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			key := string(k)
			slash := strings.LastIndex(key, "/")
			if slash < 0 {
				return nil
			}
			s.entries[key] = port.IndexEntry{
				Category:   stored.Category,
				Rank:       stored.Rank,
				ExemplarID: key[slash+1:],
				Vector:     stored.Vector,
			}
			return nil
		})
	})
}

// Upsert adds or replaces entries.
func (s *BoltVectorIndex) Upsert(entries []port.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)

		for _, e := range entries {
			if len(e.Vector) == 0 {
				return fmt.Errorf("empty vector for %s/%s", e.Category, e.ExemplarID)
			}
			data, err := json.Marshal(storedEntry{
				Category: e.Category,
				Rank:     e.Rank,
				Vector:   e.Vector,
			})
			if err != nil {
				return err
			}
			key := entryKey(e.Category, e.ExemplarID)
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
			s.entries[key] = e
		}

		return nil
	})
}

// Query returns up to k matches sorted by descending similarity, ties broken
// by earliest category rank so results stay deterministic.
func (s *BoltVectorIndex) Query(query []float32, k int) ([]port.IndexMatch, error) {
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
	for key, e := range s.entries {
		scores = append(scores, scored{
			match: port.IndexMatch{
				Category:   e.Category,
				ExemplarID: e.ExemplarID,
				Similarity: vector.Cosine(query, e.Vector),
			},
			rank: e.Rank,
			key:  key,
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

// Has reports whether an entry exists for category+exemplar id.
func (s *BoltVectorIndex) Has(category, exemplarID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[entryKey(category, exemplarID)]
	return ok
}

// Entries returns all entries stored under a category.
func (s *BoltVectorIndex) Entries(category string) ([]port.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := domain.NormalizeName(category) + "/"
	var out []port.IndexEntry
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExemplarID < out[j].ExemplarID })
	return out, nil
}

// Rewrite moves every entry of oldCategory under newCategory.
func (s *BoltVectorIndex) Rewrite(oldCategory, newCategory string, newRank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPrefix := domain.NormalizeName(oldCategory) + "/"
	var moved []port.IndexEntry
	for key, e := range s.entries {
		if strings.HasPrefix(key, oldPrefix) {
			e.Category = newCategory
			e.Rank = newRank
			moved = append(moved, e)
		}
	}
	if len(moved) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, e := range moved {
			data, err := json.Marshal(storedEntry{
				Category: e.Category,
				Rank:     e.Rank,
				Vector:   e.Vector,
			})
			if err != nil {
				return err
			}
			if err := b.Delete([]byte(oldPrefix + e.ExemplarID)); err != nil {
				return err
			}
			if err := b.Put([]byte(entryKey(e.Category, e.ExemplarID)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range moved {
		delete(s.entries, oldPrefix+e.ExemplarID)
		s.entries[entryKey(e.Category, e.ExemplarID)] = e
	}
	return nil
}

// Remove deletes all entries of a category.
func (s *BoltVectorIndex) Remove(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := domain.NormalizeName(category) + "/"
	var keys []string
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *BoltVectorIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
