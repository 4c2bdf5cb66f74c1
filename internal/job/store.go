package job

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the in-memory RecordStore, used in tests and as the reference
// behavior for the persistent store.
type Store struct {
	notifier
	mu      sync.RWMutex
	records map[string]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

func (s *Store) Add(r *Record) error {
	s.mu.Lock()
	s.records[r.ID] = r.Clone()
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("record not found: %s", id)
	}
	return r.Clone(), nil
}

func (s *Store) GetByRequestID(requestID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.RequestID == requestID {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("record not found for request: %s", requestID)
}

func (s *Store) Update(r *Record) error {
	s.mu.Lock()
	if _, ok := s.records[r.ID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("record not found: %s", r.ID)
	}
	s.records[r.ID] = r.Clone()
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("record not found: %s", id)
	}
	delete(s.records, id)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) List() ([]*Record, error) {
	s.mu.RLock()
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListActive() ([]*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var active []*Record
	for _, r := range all {
		if !r.Status.Terminal() {
			active = append(active, r)
		}
	}
	return active, nil
}

func (s *Store) Stats() (active, finished, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		switch {
		case r.Status == StatusFinished:
			finished++
		case r.Status == StatusError:
			failed++
		default:
			active++
		}
	}
	return
}
