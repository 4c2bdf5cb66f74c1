package importer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/job"
)

// StatusClient is the slice of the backend client the scheduler needs.
type StatusClient interface {
	Status(ctx context.Context, requestID string) (*backend.StatusResponse, error)
}

const maxConcurrentPolls = 4

// Scheduler owns the poll loop. Every tick it reads the store, issues one
// status request per non-terminal record, and routes each response through
// the reconciler. The tick interval adapts to whether the import list is
// being watched: fast while expanded, slow while collapsed.
type Scheduler struct {
	store  job.RecordStore
	client StatusClient
	rec    *Reconciler
	log    *slog.Logger

	fast time.Duration
	slow time.Duration

	mu       sync.Mutex
	interval time.Duration
	inflight map[string]bool

	kick chan struct{}
}

func NewScheduler(store job.RecordStore, client StatusClient, rec *Reconciler, fast, slow time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if fast <= 0 {
		fast = time.Second
	}
	if slow <= 0 {
		slow = 10 * time.Second
	}
	return &Scheduler{
		store:    store,
		client:   client,
		rec:      rec,
		log:      logger,
		fast:     fast,
		slow:     slow,
		interval: slow,
		inflight: make(map[string]bool),
		kick:     make(chan struct{}, 1),
	}
}

// SetExpanded switches the tick cadence. Expanding also kicks an immediate
// tick so the user sees fresh state right away.
func (s *Scheduler) SetExpanded(expanded bool) {
	s.mu.Lock()
	if expanded {
		s.interval = s.fast
	} else {
		s.interval = s.slow
	}
	s.mu.Unlock()
	if expanded {
		s.Kick()
	}
}

func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Kick requests an immediate tick without waiting out the interval.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Cancel deletes the record, which removes the job from the active set. A
// response already in flight finds the record gone and is dropped by the
// reconciler.
func (s *Scheduler) Cancel(id string) error {
	return s.store.Delete(id)
}

// Run ticks until ctx is cancelled. Jobs poll indefinitely; only a terminal
// status or deletion stops them.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler.started", "fast", s.fast, "slow", s.slow)
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("scheduler.stopped")
			return
		case <-s.kick:
		case <-time.After(s.Interval()):
		}
	}
}

func (s *Scheduler) tryAcquire(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[requestID] {
		return false
	}
	s.inflight[requestID] = true
	return true
}

func (s *Scheduler) release(requestID string) {
	s.mu.Lock()
	delete(s.inflight, requestID)
	s.mu.Unlock()
}

// Tick polls every active record once. Requests run concurrently with a
// bound; one job's transport failure never affects another's poll — it is
// simply no update this tick.
func (s *Scheduler) Tick(ctx context.Context) {
	active, err := s.store.ListActive()
	if err != nil {
		s.log.Error("scheduler.list_failed", "error", err)
		return
	}
	if len(active) == 0 {
		return
	}

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrentPolls)
	for _, r := range active {
		if !s.tryAcquire(r.RequestID) {
			// previous request for this job still in flight
			continue
		}
		r := r
		g.Go(func() error {
			defer s.release(r.RequestID)

			resp, err := s.client.Status(ctx, r.RequestID)
			if err != nil {
				s.log.Debug("poll.transient", "request_id", r.RequestID, "error", err)
				return nil
			}
			if err := s.rec.Apply(r.ID, resp); err != nil {
				s.log.Error("poll.reconcile_failed", "record_id", r.ID, "error", err)
			}
			return nil
		})
	}
	g.Wait()
}
