package job

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/statforge/importd/internal/db"
)

// PersistentStore keeps records in badger so non-terminal imports resume
// polling after a restart.
type PersistentStore struct {
	notifier
	dbStore *db.Store
}

func NewPersistentStore(dbStore *db.Store) *PersistentStore {
	return &PersistentStore{dbStore: dbStore}
}

func (s *PersistentStore) put(r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.dbStore.Set(db.NamespaceJobs, r.ID, data); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

func (s *PersistentStore) Add(r *Record) error {
	if err := s.put(r); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *PersistentStore) Get(id string) (*Record, error) {
	data, err := s.dbStore.Get(db.NamespaceJobs, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &r, nil
}

func (s *PersistentStore) GetByRequestID(requestID string) (*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.RequestID == requestID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("record not found for request: %s", requestID)
}

func (s *PersistentStore) Update(r *Record) error {
	if _, err := s.Get(r.ID); err != nil {
		return err
	}
	if err := s.put(r); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *PersistentStore) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.dbStore.Delete(db.NamespaceJobs, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.notify()
	return nil
}

func (s *PersistentStore) List() ([]*Record, error) {
	values, err := s.dbStore.ListValues(db.NamespaceJobs, "")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]*Record, 0, len(values))
	for _, data := range values {
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		records = append(records, &r)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *PersistentStore) ListActive() ([]*Record, error) {
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

func (s *PersistentStore) Stats() (active, finished, failed int) {
	all, err := s.List()
	if err != nil {
		return 0, 0, 0
	}
	for _, r := range all {
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
