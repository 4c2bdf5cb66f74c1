package ws

import (
	"github.com/statforge/importd/internal/importer"
	"github.com/statforge/importd/internal/job"
)

// JobUpdate pairs a record with its projected progress so presentation
// clients never compute display state themselves.
type JobUpdate struct {
	Record   *job.Record   `json:"record"`
	Progress importer.View `json:"progress"`
}

// UpdateMessage is pushed to every connected client whenever the record
// store changes, and once on connect as a snapshot.
type UpdateMessage struct {
	Type string      `json:"type"`
	Jobs []JobUpdate `json:"jobs"`
}
