package domain

import "time"

// IngestStatus is the terminal state of one document in a batch.
type IngestStatus string

// Ingestion statuses.
const (
	// IngestSuccess means the document was processed and its watermark advanced.
	IngestSuccess IngestStatus = "success"

	// IngestSkipped means the source hash matched the watermark.
	IngestSkipped IngestStatus = "skipped"

	// IngestFailed means processing failed; the watermark was left untouched
	// so the next run retries the document.
	IngestFailed IngestStatus = "failed"

	// IngestRemoved means the document vanished from the source and its
	// chunks, summary and watermark were deleted.
	IngestRemoved IngestStatus = "removed"
)

// IngestOutcome reports what happened to one document.
type IngestOutcome struct {
	// DocumentID identifies the document.
	DocumentID string

	// Name is the display name of the document.
	Name string

	// Status is the terminal state.
	Status IngestStatus

	// Err is the failure cause when Status is IngestFailed.
	Err error

	// Chunks is the number of chunks persisted.
	Chunks int

	// SummaryReused is true when an existing summary was reused.
	SummaryReused bool

	// EmbeddingReused is true when normalized text was unchanged and
	// stored chunks were kept as is.
	EmbeddingReused bool

	// Duration is the wall time spent on the document.
	Duration time.Duration
}

// BatchReport summarises one ingestion run.
type BatchReport struct {
	// RunID uniquely identifies the run.
	RunID string

	// Source is the name of the source connector.
	Source string

	// Started is when the run started.
	Started time.Time

	// Finished is when the run finished.
	Finished time.Time

	// Outcomes holds one entry per document, in listing order.
	Outcomes []IngestOutcome

	// Cancelled is true when the run was cancelled before every
	// document was started.
	Cancelled bool
}

// Count returns the number of outcomes with the given status.
func (r *BatchReport) Count(status IngestStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes.
func (r *BatchReport) Failed() []IngestOutcome {
	var failed []IngestOutcome
	for _, o := range r.Outcomes {
		if o.Status == IngestFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// RunRecord is the persisted summary of one ingestion run.
type RunRecord struct {
	RunID    string
	Source   string
	Started  time.Time
	Finished time.Time

	// Per-status document counts.
	Succeeded int
	Skipped   int
	Failed    int
	Removed   int

	Cancelled bool

	// Error is the run-level error message, empty on success.
	Error string
}

// NewRunRecord summarises a report and its run-level error.
func NewRunRecord(report *BatchReport, err error) RunRecord {
	rec := RunRecord{
		RunID:     report.RunID,
		Source:    report.Source,
		Started:   report.Started,
		Finished:  report.Finished,
		Succeeded: report.Count(IngestSuccess),
		Skipped:   report.Count(IngestSkipped),
		Failed:    report.Count(IngestFailed),
		Removed:   report.Count(IngestRemoved),
		Cancelled: report.Cancelled,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
