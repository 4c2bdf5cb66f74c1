package importer

import "fmt"

// SubmissionError is a validation or transport failure at submit time. It is
// never retried and no record is created; the caller surfaces it directly.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("submission failed: %s", e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ReconciliationError means a finished payload could not be materialized.
// The record keeps status=finished with reconciled=false so the result is
// not silently lost; this is distinct from a backend-reported failure.
type ReconciliationError struct {
	RecordID string
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed for %s: %v", e.RecordID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
