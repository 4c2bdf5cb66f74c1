package importer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/library"
)

type fakeSubmitClient struct {
	resp    *backend.SubmitResponse
	err     error
	calls   int
	lastReq *backend.SubmitRequest
}

func (f *fakeSubmitClient) Submit(ctx context.Context, req *backend.SubmitRequest) (*backend.SubmitResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &backend.SubmitResponse{State: "ok", ID: "1"}, nil
}

// fakeStatusClient answers polls via fn and counts calls per request id.
type fakeStatusClient struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(requestID string) (*backend.StatusResponse, error)
}

func newFakeStatusClient(fn func(requestID string) (*backend.StatusResponse, error)) *fakeStatusClient {
	return &fakeStatusClient{calls: make(map[string]int), fn: fn}
}

func (f *fakeStatusClient) Status(ctx context.Context, requestID string) (*backend.StatusResponse, error) {
	f.mu.Lock()
	f.calls[requestID]++
	f.mu.Unlock()
	return f.fn(requestID)
}

func (f *fakeStatusClient) count(requestID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[requestID]
}

// fakeLibrary records created entities and can fail statblock creation to
// simulate a partial materialization failure.
type fakeLibrary struct {
	mu             sync.Mutex
	sources        []*library.Source
	statblocks     []*library.Statblock
	images         []*library.Image
	failStatblocks error
}

func (f *fakeLibrary) CreateSource(src *library.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if src.ID == "" {
		src.ID = "src-fake"
	}
	f.sources = append(f.sources, src)
	return nil
}

func (f *fakeLibrary) CreateStatblock(sb *library.Statblock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatblocks != nil {
		return f.failStatblocks
	}
	f.statblocks = append(f.statblocks, sb)
	return nil
}

func (f *fakeLibrary) CreateImage(img *library.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	return nil
}

func (f *fakeLibrary) counts() (sources, statblocks, images int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources), len(f.statblocks), len(f.images)
}

func statusResponse(status string, cur, total int) *backend.StatusResponse {
	return &backend.StatusResponse{
		Status:       status,
		Progress:     [2]int{cur, total},
		FileProgress: [2]int{0, 1},
	}
}

func finishedResponse(sources string) *backend.StatusResponse {
	return &backend.StatusResponse{
		Status:       "finished",
		Progress:     [2]int{1, 1},
		FileProgress: [2]int{1, 1},
		Sources:      json.RawMessage(sources),
	}
}

const oneSourcePayload = `[{
	"num_pages": 320,
	"filepath": "mm.pdf",
	"version": "1.2",
	"statblocks": [{"name": "Goblin"}, {"name": "Ogre"}],
	"images": [{"name": "goblin.png", "page": 12}]
}]`
