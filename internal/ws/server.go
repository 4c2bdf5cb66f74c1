// Package ws pushes import updates to presentation clients over WebSocket,
// replacing any render-driven polling of local state: the UI subscribes once
// and re-renders on each message.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/statforge/importd/internal/importer"
	"github.com/statforge/importd/internal/job"
)

type Server struct {
	store job.RecordStore
	log   *slog.Logger

	connsMu sync.RWMutex
	conns   map[string]*websocket.Conn
}

func NewServer(store job.RecordStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store: store,
		log:   logger,
		conns: make(map[string]*websocket.Conn),
	}
	store.Subscribe(s.broadcast)
	return s
}

func (s *Server) snapshot() (*UpdateMessage, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	msg := &UpdateMessage{Type: "jobs", Jobs: make([]JobUpdate, 0, len(records))}
	for _, r := range records {
		msg.Jobs = append(msg.Jobs, JobUpdate{Record: r, Progress: importer.Project(r)})
	}
	return msg, nil
}

func (s *Server) broadcast() {
	msg, err := s.snapshot()
	if err != nil {
		s.log.Error("ws.snapshot_failed", "error", err)
		return
	}

	s.connsMu.RLock()
	conns := make(map[string]*websocket.Conn, len(s.conns))
	for id, conn := range s.conns {
		conns[id] = conn
	}
	s.connsMu.RUnlock()

	for id, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := wsjson.Write(ctx, conn, msg)
		cancel()
		if err != nil {
			s.log.Debug("ws.write_failed", "conn_id", id, "error", err)
			s.remove(id)
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

func (s *Server) remove(id string) {
	s.connsMu.Lock()
	delete(s.conns, id)
	s.connsMu.Unlock()
}

// HandleUpdates upgrades the connection, sends a snapshot, and then keeps
// the client subscribed until it disconnects.
func (s *Server) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("ws.accept_failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")

	id := uuid.NewString()
	s.connsMu.Lock()
	s.conns[id] = conn
	s.connsMu.Unlock()
	defer s.remove(id)

	msg, err := s.snapshot()
	if err == nil {
		if err := wsjson.Write(r.Context(), conn, msg); err != nil {
			return
		}
	}

	// Clients only listen; drain until close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}
