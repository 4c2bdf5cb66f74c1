package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/importer"
	"github.com/statforge/importd/internal/job"
	"github.com/statforge/importd/internal/library"
)

var startTime = time.Now()

// maxUploadBytes bounds one multipart submission.
const maxUploadBytes = 256 << 20

type Handlers struct {
	store     job.RecordStore
	library   *library.Store
	submitter *importer.Submitter
	scheduler *importer.Scheduler
	log       *slog.Logger
}

func NewHandlers(store job.RecordStore, lib *library.Store, submitter *importer.Submitter, scheduler *importer.Scheduler, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		library:   lib,
		submitter: submitter,
		scheduler: scheduler,
		log:       logger,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	active, finished, failed := h.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"poll_interval":  h.scheduler.Interval().String(),
		"imports": map[string]int{
			"active":   active,
			"finished": finished,
			"failed":   failed,
		},
	})
}

type importView struct {
	Record   *job.Record   `json:"record"`
	Progress importer.View `json:"progress"`
}

// SubmitImport accepts a multipart submission from presentation code:
// repeated "files" parts plus title/author/description fields, repeated
// per-file "titles" and "pages" fields, and the store_images/store_raw/merge
// flags.
func (h *Handlers) SubmitImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	form := r.MultipartForm
	titles := form.Value["titles"]
	pages := form.Value["pages"]

	var files []backend.SubmitFile
	for i, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file part"})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file part"})
			return
		}

		sf := backend.SubmitFile{Name: fh.Filename, Content: content}
		if i < len(titles) {
			sf.Title = titles[i]
		}
		if i < len(pages) {
			sf.Pages = pages[i]
		}
		files = append(files, sf)
	}

	req := &importer.Request{
		Files: files,
		Config: job.Config{
			StoreImages: formBool(r, "store_images"),
			StoreRaw:    formBool(r, "store_raw"),
			Merge:       formBool(r, "merge"),
		},
		Meta: job.SourceMeta{
			Title:       r.FormValue("title"),
			Author:      r.FormValue("author"),
			Description: r.FormValue("description"),
		},
	}

	rec, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		var serr *importer.SubmissionError
		if errors.As(err, &serr) {
			status := http.StatusBadRequest
			if serr.Err != nil {
				status = http.StatusBadGateway
			}
			writeJSON(w, status, map[string]string{"error": serr.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.scheduler.Kick()
	writeJSON(w, http.StatusCreated, importView{Record: rec, Progress: importer.Project(rec)})
}

func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	views := make([]importView, 0, len(records))
	for _, rec := range records {
		views = append(views, importView{Record: rec, Progress: importer.Project(rec)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": views, "total": len(views)})
}

func (h *Handlers) GetImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "import not found"})
		return
	}
	writeJSON(w, http.StatusOK, importView{Record: rec, Progress: importer.Project(rec)})
}

// CancelImport deletes the record, which also removes the job from the
// active poll set.
func (h *Handlers) CancelImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.Cancel(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "import not found"})
		return
	}
	h.log.Info("import.cancelled", "record_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type viewStateRequest struct {
	Expanded bool `json:"expanded"`
}

// SetViewState tells the scheduler whether the import list is being watched,
// which drives the adaptive poll cadence.
func (h *Handlers) SetViewState(w http.ResponseWriter, r *http.Request) {
	var req viewStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.scheduler.SetExpanded(req.Expanded)
	writeJSON(w, http.StatusOK, map[string]any{
		"expanded":      req.Expanded,
		"poll_interval": h.scheduler.Interval().String(),
	})
}

func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.library.ListSources()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources, "total": len(sources)})
}

func (h *Handlers) GetSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	src, err := h.library.GetSource(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "source not found"})
		return
	}
	statblocks, err := h.library.ListStatblocks(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	images, err := h.library.ListImages(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     src,
		"statblocks": statblocks,
		"images":     images,
	})
}

func (h *Handlers) DeleteSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.library.DeleteSource(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "source not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formBool(r *http.Request, field string) bool {
	v := r.FormValue(field)
	return v == "true" || v == "1"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
