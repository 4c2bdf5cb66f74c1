package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/statforge/importd/internal/ws"
)

func NewRouter(h *Handlers, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Imports API
	r.Post("/api/imports", h.SubmitImport)
	r.Get("/api/imports", h.ListImports)
	r.Get("/api/imports/{id}", h.GetImport)
	r.Delete("/api/imports/{id}", h.CancelImport)
	r.Put("/api/view", h.SetViewState)

	// Library API
	r.Get("/api/sources", h.ListSources)
	r.Get("/api/sources/{id}", h.GetSource)
	r.Delete("/api/sources/{id}", h.DeleteSource)

	// Update push for presentation clients
	if wsServer != nil {
		r.Get("/ws/updates", wsServer.HandleUpdates)
	}

	return r
}
