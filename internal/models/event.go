package models

import "time"

// Event kinds written to the ingest log.
const (
	EventStartIngest    = "start_ingest"
	EventScanPage       = "scan_page"
	EventFoundDocument  = "found_document"
	EventFetchFailed    = "fetch_failed"
	EventExtractFailed  = "extract_failed"
	EventUnchangedSkip  = "unchanged_skip"
	EventChangedOrNew   = "changed_or_new"
	EventIngestedChunks = "ingested_chunks"
	EventIndexFailed    = "index_failed"
	EventReset          = "reset"
)

// Event is an append-only ingest log entry. It is never updated.
type Event struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	SourceURL string    `json:"url" db:"url"`
	Kind      string    `json:"event" db:"event"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
