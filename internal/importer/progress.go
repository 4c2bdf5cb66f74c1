package importer

import (
	"fmt"

	"github.com/statforge/importd/internal/job"
)

// View is a record projected for display: a stage label, a 0..1 fraction
// (when determinate), and a file counter.
type View struct {
	StageLabel    string  `json:"stage_label"`
	StageFraction float64 `json:"stage_fraction"`
	Indeterminate bool    `json:"indeterminate"`
	FileLabel     string  `json:"file_label"`
	Reason        string  `json:"reason,omitempty"`
}

var stageLabels = map[job.Status]string{
	job.StatusFileUpload:        "Uploading files",
	job.StatusTextExtraction:    "Extracting text",
	job.StatusFindingStatblocks: "Finding statblocks",
	job.StatusJoiningStatblocks: "Joining partial statblocks",
	job.StatusProcessing:        "Processing statblocks",
	job.StatusFinished:          "Finished",
	job.StatusError:             "Failed",
}

// Project maps a record to its presentation view. Pure; safe to call at any
// rate.
func Project(r *job.Record) View {
	label, ok := stageLabels[r.Status]
	if !ok {
		label = string(r.Status)
	}

	v := View{StageLabel: label, Indeterminate: true}
	if !r.StageProgress.Indeterminate() {
		v.StageFraction = float64(r.StageProgress.Current) / float64(r.StageProgress.Total)
		v.Indeterminate = false
	}
	v.FileLabel = fmt.Sprintf("%d/%d files", r.FileProgress.Current, r.FileProgress.Total)
	// most recent backend error is the primary reason shown
	if r.Status == job.StatusError && len(r.Errors) > 0 {
		v.Reason = r.Errors[len(r.Errors)-1]
	}
	return v
}
