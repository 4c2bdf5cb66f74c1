// Package library is the local document store that finished imports are
// materialized into: one Source per processed document, with its extracted
// statblocks and images linked underneath.
package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/statforge/importd/internal/db"
)

type Source struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author,omitempty"`
	Description string          `json:"description,omitempty"`
	Filepath    string          `json:"filepath"`
	NumPages    int             `json:"num_pages"`
	Version     string          `json:"version,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Statblock struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

type Image struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Name      string    `json:"name,omitempty"`
	Page      int       `json:"page,omitempty"`
	Data      string    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db  *db.Store
	log *slog.Logger
}

func NewStore(dbStore *db.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: dbStore, log: logger}
}

func sourceKey(id string) string              { return "sources/" + id }
func statblockKey(sourceID, id string) string { return "statblocks/" + sourceID + "/" + id }
func imageKey(sourceID, id string) string     { return "images/" + sourceID + "/" + id }

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.db.Set(db.NamespaceLibrary, key, data)
}

func (s *Store) CreateSource(src *Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	if err := s.put(sourceKey(src.ID), src); err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	s.log.Info("library.source_created", "source_id", src.ID, "title", src.Title)
	return nil
}

func (s *Store) GetSource(id string) (*Source, error) {
	data, err := s.db.Get(db.NamespaceLibrary, sourceKey(id))
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	var src Source
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("unmarshal source: %w", err)
	}
	return &src, nil
}

func (s *Store) ListSources() ([]*Source, error) {
	values, err := s.db.ListValues(db.NamespaceLibrary, "sources/")
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	sources := make([]*Source, 0, len(values))
	for _, data := range values {
		var src Source
		if err := json.Unmarshal(data, &src); err != nil {
			continue
		}
		sources = append(sources, &src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].CreatedAt.Before(sources[j].CreatedAt)
	})
	return sources, nil
}

// DeleteSource removes a source and everything linked to it.
func (s *Store) DeleteSource(id string) error {
	if _, err := s.GetSource(id); err != nil {
		return err
	}
	for _, prefix := range []string{"statblocks/" + id + "/", "images/" + id + "/"} {
		keys, err := s.db.List(db.NamespaceLibrary, prefix)
		if err != nil {
			return fmt.Errorf("list linked entities: %w", err)
		}
		for _, key := range keys {
			if err := s.db.Delete(db.NamespaceLibrary, key); err != nil {
				return fmt.Errorf("delete linked entity: %w", err)
			}
		}
	}
	if err := s.db.Delete(db.NamespaceLibrary, sourceKey(id)); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	s.log.Info("library.source_deleted", "source_id", id)
	return nil
}

func (s *Store) CreateStatblock(sb *Statblock) error {
	if sb.ID == "" {
		sb.ID = uuid.NewString()
	}
	if sb.CreatedAt.IsZero() {
		sb.CreatedAt = time.Now().UTC()
	}
	if err := s.put(statblockKey(sb.SourceID, sb.ID), sb); err != nil {
		return fmt.Errorf("create statblock: %w", err)
	}
	return nil
}

func (s *Store) ListStatblocks(sourceID string) ([]*Statblock, error) {
	values, err := s.db.ListValues(db.NamespaceLibrary, "statblocks/"+sourceID+"/")
	if err != nil {
		return nil, fmt.Errorf("list statblocks: %w", err)
	}
	blocks := make([]*Statblock, 0, len(values))
	for _, data := range values {
		var sb Statblock
		if err := json.Unmarshal(data, &sb); err != nil {
			continue
		}
		blocks = append(blocks, &sb)
	}
	return blocks, nil
}

func (s *Store) CreateImage(img *Image) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	if err := s.put(imageKey(img.SourceID, img.ID), img); err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

func (s *Store) ListImages(sourceID string) ([]*Image, error) {
	values, err := s.db.ListValues(db.NamespaceLibrary, "images/"+sourceID+"/")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	images := make([]*Image, 0, len(values))
	for _, data := range values {
		var img Image
		if err := json.Unmarshal(data, &img); err != nil {
			continue
		}
		images = append(images, &img)
	}
	return images, nil
}
