package job

import (
	"time"

	"github.com/google/uuid"
)

// Status is the pipeline stage reported by the processing backend. Stages
// advance in a fixed order; error is reachable from any non-terminal stage.
type Status string

const (
	StatusFileUpload        Status = "file_upload"
	StatusTextExtraction    Status = "text_extraction"
	StatusFindingStatblocks Status = "finding_statblock_text"
	StatusJoiningStatblocks Status = "joining_partial_statblocks"
	StatusProcessing        Status = "processing_statblocks"
	StatusFinished          Status = "finished"
	StatusError             Status = "error"
)

var stageOrder = map[Status]int{
	StatusFileUpload:        0,
	StatusTextExtraction:    1,
	StatusFindingStatblocks: 2,
	StatusJoiningStatblocks: 3,
	StatusProcessing:        4,
	StatusFinished:          5,
	StatusError:             6,
}

// Ordinal returns the position of s in the pipeline, or -1 for a status the
// client does not know.
func (s Status) Ordinal() int {
	ord, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return ord
}

func (s Status) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Terminal statuses are never polled again.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Progress is a (current, total) counter pair. (-1, -1) means indeterminate.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

func Indeterminate() Progress {
	return Progress{Current: -1, Total: -1}
}

func (p Progress) Indeterminate() bool {
	return p.Current < 0 || p.Total <= 0
}

// Config holds the post-processing flags chosen at submit time.
type Config struct {
	StoreImages bool `json:"store_images"`
	StoreRaw    bool `json:"store_raw"`
	Merge       bool `json:"merge"`
}

// SourceMeta is the user-supplied metadata attached to every entity
// materialized from a finished import.
type SourceMeta struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
}

// Record tracks one import end to end: from submission, through the backend
// pipeline stages, to materialization into the library. Records persist so
// polling resumes across restarts.
type Record struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	StageProgress Progress   `json:"stage_progress"`
	FileProgress  Progress   `json:"file_progress"`
	Errors        []string   `json:"errors,omitempty"`
	Config        Config     `json:"config"`
	SourceMeta    SourceMeta `json:"source_meta"`
	Reconciled    bool       `json:"reconciled"`
	CreatedAt     time.Time  `json:"created_at"`
}

func New(requestID, title string, fileCount int, cfg Config, meta SourceMeta) *Record {
	return &Record{
		ID:            uuid.NewString(),
		RequestID:     requestID,
		Title:         title,
		Status:        StatusFileUpload,
		StageProgress: Indeterminate(),
		FileProgress:  Progress{Current: 0, Total: fileCount},
		Config:        cfg,
		SourceMeta:    meta,
		CreatedAt:     time.Now().UTC(),
	}
}

// Clone returns an independent copy. Stores hand out clones so callers never
// observe a half-written record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Errors != nil {
		c.Errors = append([]string{}, r.Errors...)
	}
	return &c
}
