package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/toeicquiz/backend/internal/id"
)

// MemoryStore keeps JSON documents in process memory. It backs demo mode
// and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, docID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][docID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return jsonSnapshot(docID, data), nil
}

func (s *MemoryStore) Set(_ context.Context, collection, docID string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string][]byte)
	}
	s.docs[collection][docID] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[collection][docID]; !ok {
		return ErrNotFound
	}
	delete(s.docs[collection], docID)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	docID := id.GenerateID()
	if err := s.Set(ctx, collection, docID, doc); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(collection, func([]byte) bool { return true }), nil
}

func (s *MemoryStore) Where(_ context.Context, collection, field string, value any) ([]Snapshot, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(collection, func(data []byte) bool {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return false
		}
		got, ok := fields[field]
		return ok && bytes.Equal(got, want)
	}), nil
}

// sorted returns the matching documents ordered by id. Caller holds s.mu.
func (s *MemoryStore) sorted(collection string, match func([]byte) bool) []Snapshot {
	ids := make([]string, 0, len(s.docs[collection]))
	for docID := range s.docs[collection] {
		ids = append(ids, docID)
	}
	sort.Strings(ids)

	var out []Snapshot
	for _, docID := range ids {
		data := s.docs[collection][docID]
		if match(data) {
			out = append(out, jsonSnapshot(docID, data))
		}
	}
	return out
}

func jsonSnapshot(docID string, data []byte) Snapshot {
	return Snapshot{
		ID: docID,
		decode: func(v any) error {
			return json.Unmarshal(data, v)
		},
	}
}
