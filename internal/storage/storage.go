// Package storage defines the persistence interface for sources, the ingest log, and chunks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/yomu/internal/models"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Storage defines source, event, and chunk persistence operations.
type Storage interface {
	// Source operations
	GetSource(ctx context.Context, url string) (*models.Source, error)
	UpsertSource(ctx context.Context, src *models.Source) error
	ListSources(ctx context.Context, offset, limit int) ([]*models.Source, error)
	ResetSources(ctx context.Context) error

	// Ingest log operations (append-only)
	AppendEvent(ctx context.Context, ev *models.Event) error
	ListEvents(ctx context.Context, limit int) ([]*models.Event, error)

	// Chunk operations
	ReplaceChunks(ctx context.Context, sourceURL string, chunks []*models.Chunk) error
	DeleteChunksBySource(ctx context.Context, sourceURL string) error
	DeleteAllChunks(ctx context.Context) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksBySource(ctx context.Context, sourceURL string) ([]*models.Chunk, error)
	ListChunks(ctx context.Context) ([]*models.Chunk, error)

	// Stats
	CountSources(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountEvents(ctx context.Context) (int64, error)

	Close() error
}
