package importer

import (
	"context"
	"testing"
	"time"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/job"
)

// Full lifecycle: submit, three polls walking the pipeline, materialization.
func TestLifecycle_SubmitToFinished(t *testing.T) {
	store := job.NewStore()
	lib := &fakeLibrary{}

	submitter := NewSubmitter(store, &fakeSubmitClient{}, nil)
	rec, err := submitter.Submit(context.Background(), &Request{
		Files:  []backend.SubmitFile{{Name: "mm.pdf", Content: []byte("%PDF"), Title: "Monster Manual"}},
		Config: job.Config{StoreImages: true},
		Meta:   job.SourceMeta{Title: "Monster Manual", Author: "Various"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	script := []*backend.StatusResponse{
		statusResponse("text_extraction", 3, 10),
		statusResponse("processing_statblocks", 1, 2),
		finishedResponse(oneSourcePayload),
	}
	var poll int
	client := newFakeStatusClient(func(requestID string) (*backend.StatusResponse, error) {
		resp := script[poll]
		poll++
		return resp, nil
	})
	s := NewScheduler(store, client, NewReconciler(store, lib, nil), time.Second, 10*time.Second, nil)

	s.Tick(context.Background())
	got, _ := store.Get(rec.ID)
	if got.Status != job.StatusTextExtraction {
		t.Fatalf("after first poll expected text_extraction, got %s", got.Status)
	}

	s.Tick(context.Background())
	s.Tick(context.Background())

	got, _ = store.Get(rec.ID)
	if got.Status != job.StatusFinished {
		t.Fatalf("expected finished, got %s", got.Status)
	}
	if !got.Reconciled {
		t.Error("expected reconciled=true")
	}
	sources, statblocks, images := lib.counts()
	if sources != 1 || statblocks != 2 || images != 1 {
		t.Errorf("expected 1/2/1 entities, got %d/%d/%d", sources, statblocks, images)
	}

	// terminal: further ticks do nothing
	s.Tick(context.Background())
	if client.count(rec.RequestID) != 3 {
		t.Errorf("finished job still polled: %d polls", client.count(rec.RequestID))
	}
}

func TestLifecycle_SubmitToError(t *testing.T) {
	store := job.NewStore()
	lib := &fakeLibrary{}

	submitter := NewSubmitter(store, &fakeSubmitClient{}, nil)
	rec, err := submitter.Submit(context.Background(), &Request{
		Files: []backend.SubmitFile{{Name: "bad.pdf", Content: []byte("x"), Title: "Bad"}},
		Meta:  job.SourceMeta{Title: "Bad"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	client := newFakeStatusClient(func(requestID string) (*backend.StatusResponse, error) {
		resp := statusResponse("error", -1, -1)
		resp.Errors = []string{"corrupt file"}
		return resp, nil
	})
	s := NewScheduler(store, client, NewReconciler(store, lib, nil), time.Second, 10*time.Second, nil)

	s.Tick(context.Background())

	got, _ := store.Get(rec.ID)
	if got.Status != job.StatusError {
		t.Fatalf("expected error, got %s", got.Status)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "corrupt file" {
		t.Errorf("expected [corrupt file], got %v", got.Errors)
	}
	if s2, b, i := lib.counts(); s2+b+i != 0 {
		t.Error("failed import must not create entities")
	}
	if got.Reconciled {
		t.Error("failed import must not be reconciled")
	}
}
