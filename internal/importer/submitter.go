package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/statforge/importd/internal/backend"
	"github.com/statforge/importd/internal/job"
	"github.com/statforge/importd/internal/retry"
)

// SubmitClient is the slice of the backend client the submitter needs.
type SubmitClient interface {
	Submit(ctx context.Context, req *backend.SubmitRequest) (*backend.SubmitResponse, error)
}

// Request is one user-initiated import.
type Request struct {
	Files  []backend.SubmitFile
	Config job.Config
	Meta   job.SourceMeta
}

// Submitter performs the at-most-once submit call and creates the first
// record. Unlike polling, a failed submission is not retried: the failure is
// returned synchronously and no record exists afterwards.
type Submitter struct {
	store  job.RecordStore
	client SubmitClient
	status StatusClient
	policy retry.Policy
	log    *slog.Logger
}

func NewSubmitter(store job.RecordStore, client SubmitClient, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		store:  store,
		client: client,
		policy: retry.DefaultPolicy(),
		log:    logger,
	}
}

// WithConfirmation makes Submit confirm, under the backoff policy, that the
// backend registered the job before returning. The submit POST itself stays
// at-most-once; only the idempotent status read is retried.
func (s *Submitter) WithConfirmation(status StatusClient, policy retry.Policy) *Submitter {
	s.status = status
	s.policy = policy
	return s
}

func (s *Submitter) validate(req *Request) error {
	if len(req.Files) == 0 {
		return &SubmissionError{Reason: "no files"}
	}
	if req.Meta.Title == "" {
		return &SubmissionError{Reason: "title is required"}
	}
	if !req.Config.Merge {
		for i, f := range req.Files {
			if f.Title == "" {
				return &SubmissionError{Reason: fmt.Sprintf("file %d (%s) needs a title when not merging", i+1, f.Name)}
			}
		}
	}
	return nil
}

// Submit validates, generates the correlation id, performs exactly one
// submit call, and on success stores the initial record.
func (s *Submitter) Submit(ctx context.Context, req *Request) (*job.Record, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	source := backend.SourceField{
		Title:       req.Meta.Title,
		Author:      req.Meta.Author,
		Description: req.Meta.Description,
	}
	if !req.Config.Merge {
		for _, f := range req.Files {
			source.Titles = append(source.Titles, f.Title)
		}
	}

	resp, err := s.client.Submit(ctx, &backend.SubmitRequest{
		Files:         req.Files,
		ExtractImages: req.Config.StoreImages,
		RequestID:     requestID,
		Source:        source,
	})
	if err != nil {
		return nil, &SubmissionError{Reason: "backend unreachable", Err: err}
	}
	if resp.State == "error" {
		return nil, &SubmissionError{Reason: "backend rejected the submission"}
	}

	rec := job.New(requestID, req.Meta.Title, len(req.Files), req.Config, req.Meta)
	if err := s.store.Add(rec); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	if s.status != nil {
		err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
			_, serr := s.status.Status(ctx, requestID)
			return serr
		})
		if err != nil {
			// The record exists and the scheduler will keep polling, so an
			// unconfirmed submission is a warning, not a failure.
			s.log.Warn("import.unconfirmed", "request_id", requestID, "error", err)
		}
	}

	s.log.Info("import.submitted",
		"record_id", rec.ID,
		"request_id", requestID,
		"files", len(req.Files),
		"title", req.Meta.Title,
	)
	return rec, nil
}
