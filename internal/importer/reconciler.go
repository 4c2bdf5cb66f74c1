package importer

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/job"
	"github.com/statforge/importd/internal/library"
)

// Library is the slice of the library store the reconciler writes to.
type Library interface {
	CreateSource(src *library.Source) error
	CreateStatblock(sb *library.Statblock) error
	CreateImage(img *library.Image) error
}

// Reconciler interprets poll responses: it merges state onto the record and,
// exactly once per job, materializes a finished payload into the library.
type Reconciler struct {
	store job.RecordStore
	lib   Library
	log   *slog.Logger
}

func NewReconciler(store job.RecordStore, lib Library, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, lib: lib, log: logger}
}

// Apply merges one status response onto the record. A response for a record
// that no longer exists (cancelled while the request was in flight) is
// dropped. A response whose stage is behind the record's (network
// reordering) is dropped too, so status never regresses.
func (r *Reconciler) Apply(recordID string, resp *backend.StatusResponse) error {
	rec, err := r.store.Get(recordID)
	if err != nil {
		r.log.Debug("reconcile.dropped_missing", "record_id", recordID)
		return nil
	}
	if rec.Status.Terminal() {
		return nil
	}

	incoming := job.Status(resp.Status)
	if !incoming.Valid() {
		return fmt.Errorf("unknown backend status %q", resp.Status)
	}

	if incoming == job.StatusError {
		rec.Status = job.StatusError
		rec.Errors = append(rec.Errors, resp.Errors...)
		if err := r.store.Update(rec); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		r.log.Warn("import.failed", "record_id", rec.ID, "errors", rec.Errors)
		return nil
	}

	if incoming.Ordinal() < rec.Status.Ordinal() {
		r.log.Debug("reconcile.dropped_stale",
			"record_id", rec.ID,
			"have", rec.Status,
			"got", incoming,
		)
		return nil
	}

	rec.StageProgress = job.Progress{Current: resp.Progress[0], Total: resp.Progress[1]}
	rec.FileProgress = job.Progress{Current: resp.FileProgress[0], Total: resp.FileProgress[1]}
	rec.Errors = append([]string{}, resp.Errors...)
	rec.Status = incoming

	if incoming == job.StatusFinished && !rec.Reconciled {
		if err := r.materialize(rec, resp); err != nil {
			// Keep status=finished with reconciled=false so the result is
			// recoverable instead of silently lost.
			if uerr := r.store.Update(rec); uerr != nil {
				r.log.Error("reconcile.update_failed", "record_id", rec.ID, "error", uerr)
			}
			return &ReconciliationError{RecordID: rec.ID, Err: err}
		}
		rec.Reconciled = true
	}

	if err := r.store.Update(rec); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (r *Reconciler) materialize(rec *job.Record, resp *backend.StatusResponse) error {
	sources, err := resp.DecodeSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("finished response carries no sources")
	}

	for _, sp := range sources {
		src := &library.Source{
			Title:       rec.SourceMeta.Title,
			Author:      rec.SourceMeta.Author,
			Description: rec.SourceMeta.Description,
			Filepath:    sp.Filepath,
			NumPages:    sp.NumPages,
			Version:     sp.Version,
		}
		if rec.Config.StoreRaw {
			raw, merr := json.Marshal(sp)
			if merr != nil {
				return fmt.Errorf("marshal raw source: %w", merr)
			}
			src.Raw = raw
		}
		if err := r.lib.CreateSource(src); err != nil {
			return fmt.Errorf("create source: %w", err)
		}

		for _, raw := range sp.Statblocks {
			sb := &library.Statblock{
				SourceID: src.ID,
				Name:     statblockName(raw),
				Data:     raw,
			}
			if err := r.lib.CreateStatblock(sb); err != nil {
				return fmt.Errorf("create statblock: %w", err)
			}
		}

		if rec.Config.StoreImages {
			for _, ip := range sp.Images {
				img := &library.Image{
					SourceID: src.ID,
					Name:     ip.Name,
					Page:     ip.Page,
					Data:     ip.Data,
				}
				if err := r.lib.CreateImage(img); err != nil {
					return fmt.Errorf("create image: %w", err)
				}
			}
		}
	}

	r.log.Info("import.materialized", "record_id", rec.ID, "sources", len(sources))
	return nil
}

// statblockName probes a raw statblock for its display name. Shapes are
// backend-owned; a missing name is fine.
func statblockName(raw json.RawMessage) string {
	var probe struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Name
}
