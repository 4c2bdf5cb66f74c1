package backend

import (
	"encoding/json"
	"fmt"
)

// SubmitFile is one document in a submission, with an optional page
// selection ("", "1-30", "5,7,9-12") and a per-file title used when the
// import is not merged into a single source.
type SubmitFile struct {
	Name    string
	Content []byte
	Pages   string
	Title   string
}

type SubmitRequest struct {
	Files         []SubmitFile
	ExtractImages bool
	RequestID     string
	Source        SourceField
}

// SourceField is the serialized `source` form field.
type SourceField struct {
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Titles      []string `json:"titles,omitempty"`
}

type SubmitResponse struct {
	State string `json:"state"`
	ID    string `json:"id,omitempty"`
}

// StatusResponse is one poll result. Sources is present only once the
// backend reports status "finished"; it stays raw here so that decoding (and
// schema-checking) happens at materialization time, where a malformed
// payload must surface as a reconciliation failure.
type StatusResponse struct {
	Status       string          `json:"status"`
	Progress     [2]int          `json:"progress"`
	FileProgress [2]int          `json:"file_progress"`
	Errors       []string        `json:"errors"`
	Sources      json.RawMessage `json:"sources,omitempty"`
}

// DecodeSources validates and decodes the finished payload.
func (r *StatusResponse) DecodeSources() ([]SourcePayload, error) {
	if len(r.Sources) == 0 {
		return nil, nil
	}
	if err := ValidateSources(r.Sources); err != nil {
		return nil, err
	}
	var sources []SourcePayload
	if err := json.Unmarshal(r.Sources, &sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return sources, nil
}

// SourcePayload is one produced source. Statblock shapes are backend-owned,
// so they are carried raw and only probed for a display name.
type SourcePayload struct {
	NumPages   int               `json:"num_pages"`
	Filepath   string            `json:"filepath"`
	Version    string            `json:"version"`
	Statblocks []json.RawMessage `json:"statblocks"`
	Images     []ImagePayload    `json:"images,omitempty"`
	PageImages []ImagePayload    `json:"page_images,omitempty"`
}

type ImagePayload struct {
	Name string `json:"name"`
	Page int    `json:"page,omitempty"`
	Data string `json:"data,omitempty"`
}
