// Package models defines core data structures for sources, chunks, events, and answers.
package models

import "time"

// SourceKind distinguishes crawled HTML pages from linked documents.
type SourceKind string

const (
	KindPage     SourceKind = "page"
	KindDocument SourceKind = "document"
)

// SourceStatus is the outcome of the most recent processing pass for a source.
type SourceStatus string

const (
	StatusUnprocessed SourceStatus = "unprocessed"
	StatusUnchanged   SourceStatus = "unchanged"
	StatusChanged     SourceStatus = "changed"
	StatusFailed      SourceStatus = "failed"
)

// Source is a fetched URL tracked across runs by its content fingerprint.
type Source struct {
	URL             string       `json:"url" db:"url"`
	Kind            SourceKind   `json:"kind" db:"kind"`
	Title           string       `json:"title,omitempty" db:"title"`
	Fingerprint     string       `json:"fingerprint" db:"fingerprint"`
	LastProcessedAt time.Time    `json:"last_processed_at" db:"last_processed_at"`
	Status          SourceStatus `json:"status" db:"status"`
}

// Chunk is one overlapping word window of a source's extracted text.
type Chunk struct {
	ID            string    `json:"id" db:"id"`
	SourceURL     string    `json:"source_url" db:"source_url"`
	SequenceIndex int       `json:"sequence_index" db:"sequence_index"`
	Text          string    `json:"text" db:"text"`
	Title         string    `json:"title,omitempty" db:"title"`
	WordStart     int       `json:"word_start" db:"word_start"`
	WordEnd       int       `json:"word_end" db:"word_end"`
	Embedding     []float32 `json:"-" db:"-"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Candidate is a fetched URL emitted by the crawl frontier.
type Candidate struct {
	URL         string     `json:"url"`
	Kind        SourceKind `json:"kind"`
	Depth       int        `json:"depth"`
	Title       string     `json:"title,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Raw         []byte     `json:"-"`
	Text        string     `json:"-"`
	Links       []string   `json:"-"`
	// ExtractErr is set when extraction failed; Text is then empty.
	ExtractErr error `json:"-"`
}

// FrontierEntry is a queued URL and its link distance from the seed. Scoped to one crawl.
type FrontierEntry struct {
	URL   string
	Depth int
}
