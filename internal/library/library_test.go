package library

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/statforge/importd/internal/db"
)

func newTestLibrary(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	dbStore, err := db.NewStore(tmpDir)
	if err != nil {
		t.Fatalf("create db store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })
	return NewStore(dbStore, nil)
}

func TestStore_CreateAndGetSource(t *testing.T) {
	lib := newTestLibrary(t)

	src := &Source{Title: "Monster Manual", Filepath: "mm.pdf", NumPages: 320}
	if err := lib.CreateSource(src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	if src.ID == "" {
		t.Fatal("expected assigned id")
	}

	got, err := lib.GetSource(src.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if got.Title != "Monster Manual" || got.NumPages != 320 {
		t.Errorf("bad source: %+v", got)
	}
}

func TestStore_LinkedEntities(t *testing.T) {
	lib := newTestLibrary(t)

	src := &Source{Title: "Monster Manual", Filepath: "mm.pdf"}
	lib.CreateSource(src)

	lib.CreateStatblock(&Statblock{SourceID: src.ID, Name: "Goblin", Data: json.RawMessage(`{"name":"Goblin"}`)})
	lib.CreateStatblock(&Statblock{SourceID: src.ID, Name: "Ogre", Data: json.RawMessage(`{"name":"Ogre"}`)})
	lib.CreateImage(&Image{SourceID: src.ID, Name: "goblin.png", Page: 12})

	blocks, err := lib.ListStatblocks(src.ID)
	if err != nil {
		t.Fatalf("list statblocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("expected 2 statblocks, got %d", len(blocks))
	}

	images, err := lib.ListImages(src.ID)
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(images) != 1 {
		t.Errorf("expected 1 image, got %d", len(images))
	}

	// entities of another source stay invisible
	other := &Source{Title: "Other", Filepath: "o.pdf"}
	lib.CreateSource(other)
	blocks, _ = lib.ListStatblocks(other.ID)
	if len(blocks) != 0 {
		t.Errorf("expected no statblocks for other source, got %d", len(blocks))
	}
}

func TestStore_DeleteSourceCascades(t *testing.T) {
	lib := newTestLibrary(t)

	src := &Source{Title: "Monster Manual", Filepath: "mm.pdf"}
	lib.CreateSource(src)
	lib.CreateStatblock(&Statblock{SourceID: src.ID, Name: "Goblin", Data: json.RawMessage(`{}`)})
	lib.CreateImage(&Image{SourceID: src.ID, Name: "goblin.png"})

	if err := lib.DeleteSource(src.ID); err != nil {
		t.Fatalf("delete source: %v", err)
	}

	if _, err := lib.GetSource(src.ID); err == nil {
		t.Error("expected source gone")
	}
	blocks, _ := lib.ListStatblocks(src.ID)
	if len(blocks) != 0 {
		t.Errorf("expected statblocks gone, got %d", len(blocks))
	}
	images, _ := lib.ListImages(src.ID)
	if len(images) != 0 {
		t.Errorf("expected images gone, got %d", len(images))
	}
}

func TestStore_ListSources(t *testing.T) {
	lib := newTestLibrary(t)

	lib.CreateSource(&Source{Title: "A", Filepath: "a.pdf"})
	lib.CreateSource(&Source{Title: "B", Filepath: "b.pdf"})

	sources, err := lib.ListSources()
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(sources))
	}
}
