package pipeline

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
)

// Status describes what is stored on disk.
type Status struct {
	Sources        int64 `json:"sources"`
	Chunks         int64 `json:"chunks"`
	Events         int64 `json:"events"`
	Vectors        int   `json:"vectors"`
	DiskUsageBytes int64 `json:"disk_usage_bytes"`
}

// CollectStatus counts stored rows and measures the storage paths. vectors may be nil.
func CollectStatus(ctx context.Context, store storage.Storage, vectors vector.VectorIndex, paths *config.StorageConfig) (*Status, error) {
	var st Status
	var err error
	if st.Sources, err = store.CountSources(ctx); err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}
	if st.Chunks, err = store.CountChunks(ctx); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if st.Events, err = store.CountEvents(ctx); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if vectors != nil {
		st.Vectors = vectors.Size()
	}
	if st.DiskUsageBytes, err = storage.DiskUsageBytes(paths.DatabasePath, paths.BleveIndexPath, paths.VectorIndexPath); err != nil {
		return nil, fmt.Errorf("failed to measure disk usage: %w", err)
	}
	return &st, nil
}
