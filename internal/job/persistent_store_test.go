package job

import (
	"os"
	"testing"

	"github.com/statforge/importd/internal/db"
)

func newTestDB(t *testing.T, dir string) *db.Store {
	t.Helper()
	dbStore, err := db.NewStore(dir)
	if err != nil {
		t.Fatalf("create db store: %v", err)
	}
	return dbStore
}

func TestPersistentStore_AddAndGet(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbStore := newTestDB(t, tmpDir)
	defer dbStore.Close()

	store := NewPersistentStore(dbStore)
	r := newRecord("a")

	if err := store.Add(r); err != nil {
		t.Fatalf("add record: %v", err)
	}

	got, err := store.Get(r.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.RequestID != r.RequestID {
		t.Errorf("expected %s, got %s", r.RequestID, got.RequestID)
	}
	if got.Status != StatusFileUpload {
		t.Errorf("expected file_upload, got %s", got.Status)
	}
}

func TestPersistentStore_SurvivesReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbStore := newTestDB(t, tmpDir)
	store := NewPersistentStore(dbStore)

	active := newRecord("active")
	done := newRecord("done")
	done.Status = StatusFinished
	store.Add(active)
	store.Add(done)

	if err := dbStore.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	reopened := newTestDB(t, tmpDir)
	defer reopened.Close()
	store = NewPersistentStore(reopened)

	resumable, err := store.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(resumable) != 1 || resumable[0].ID != active.ID {
		t.Fatalf("expected the active record to survive restart, got %d records", len(resumable))
	}
}

func TestPersistentStore_Delete(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbStore := newTestDB(t, tmpDir)
	defer dbStore.Close()
	store := NewPersistentStore(dbStore)

	r := newRecord("a")
	store.Add(r)

	if err := store.Delete(r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(r.ID); err == nil {
		t.Error("expected record gone")
	}
	if err := store.Delete(r.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}

func TestPersistentStore_Subscribe(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbStore := newTestDB(t, tmpDir)
	defer dbStore.Close()
	store := NewPersistentStore(dbStore)

	var calls int
	store.Subscribe(func() { calls++ })

	r := newRecord("a")
	store.Add(r)
	r.Status = StatusTextExtraction
	store.Update(r)

	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}
