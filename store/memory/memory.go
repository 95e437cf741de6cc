// Package memory provides a thread-safe in-memory implementation of store.Store.
package memory

import (
	"sync"

	"github.com/narthex/vouch/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
// Suitable for testing, demos, and single-process use cases.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]*store.Record
}

var _ store.Store = (*Store)(nil)

// New creates a new empty in-memory Store.
func New() *Store {
	return &Store{data: make(map[string]map[string]*store.Record)}
}

func cloneRecord(rec *store.Record) *store.Record {
	if rec == nil {
		return nil
	}
	return &store.Record{
		Data:    append([]byte(nil), rec.Data...),
		Version: rec.Version,
	}
}

func (s *Store) Put(collection, id string, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(collection, id, rec)
	return nil
}

func (s *Store) putLocked(collection, id string, rec *store.Record) {
	if _, ok := s.data[collection]; !ok {
		s.data[collection] = make(map[string]*store.Record)
	}
	s.data[collection][id] = cloneRecord(rec)
}

func (s *Store) Get(collection, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(collection, id)
}

func (s *Store) getLocked(collection, id string) (*store.Record, error) {
	records, ok := s.data[collection]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec, ok := records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) List(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.data[collection]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := records[id]; !ok {
		return store.ErrNotFound
	}
	delete(records, id)
	return nil
}

func (s *Store) PutCAS(collection, id string, expectedVersion uint64, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getLocked(collection, id)
	if err != nil {
		if expectedVersion != 0 {
			return store.ErrCASFailed
		}
		s.putLocked(collection, id, rec)
		return nil
	}
	if expectedVersion == 0 || existing.Version != expectedVersion {
		return store.ErrCASFailed
	}
	s.putLocked(collection, id, rec)
	return nil
}

func (s *Store) Insert(collection, id string, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLocked(collection, id); err == nil {
		return store.ErrExists
	}
	s.putLocked(collection, id, rec)
	return nil
}
