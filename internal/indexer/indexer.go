package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
	"go.uber.org/zap"
)

// Indexer owns chunk storage: SQLite rows plus the optional keyword and vector indices.
// It is the only writer on the ingestion path.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (source indexed, chunks removed, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. embedder and vectorIndex must be both set or both nil;
// keywordIndex may be nil.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.ChunkingConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      NewChunker(cfg.Size, cfg.Overlap),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Upsert replaces every stored chunk of src with chunks of text. Embeddings are computed
// before anything is deleted, so an embedding failure leaves the previous chunks in place.
// Returns the number of chunks written. Errors wrap models.ErrIndexFailure.
func (idx *Indexer) Upsert(ctx context.Context, src *models.Source, text string) (int, error) {
	chunks := idx.chunker.Chunk(src.URL, src.Title, Preprocess(text))

	var vectors [][]float32
	if idx.embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		var err error
		vectors, err = idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to generate embeddings: %w", models.ErrIndexFailure, err)
		}
		if len(vectors) != len(chunks) {
			return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", models.ErrIndexFailure, len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	oldIDs, err := idx.chunkIDs(ctx, src.URL)
	if err != nil {
		return 0, err
	}
	if err := idx.storage.ReplaceChunks(ctx, src.URL, chunks); err != nil {
		return 0, fmt.Errorf("%w: failed to store chunks: %w", models.ErrIndexFailure, err)
	}
	if err := idx.removeSecondary(ctx, oldIDs); err != nil {
		return 0, err
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if idx.keywordIndex != nil && len(chunks) > 0 {
		if err := idx.keywordIndex.Index(ctx, chunks); err != nil {
			return 0, fmt.Errorf("%w: failed to index keywords: %w", models.ErrIndexFailure, err)
		}
	}
	if idx.vectorIndex != nil && len(vectors) > 0 {
		if err := idx.vectorIndex.Add(ctx, ids, vectors); err != nil {
			return 0, fmt.Errorf("%w: failed to index vectors: %w", models.ErrIndexFailure, err)
		}
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer source indexed",
			zap.String("url", src.URL),
			zap.Int("chunks", len(chunks)),
			zap.Int("replaced", len(oldIDs)),
		)
	}
	return len(chunks), nil
}

// DeleteAllFor removes every chunk of sourceURL from storage and the indices.
func (idx *Indexer) DeleteAllFor(ctx context.Context, sourceURL string) error {
	ids, err := idx.chunkIDs(ctx, sourceURL)
	if err != nil {
		return err
	}
	if err := idx.storage.DeleteChunksBySource(ctx, sourceURL); err != nil {
		return fmt.Errorf("%w: failed to delete chunks: %w", models.ErrIndexFailure, err)
	}
	if err := idx.removeSecondary(ctx, ids); err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer source removed", zap.String("url", sourceURL), zap.Int("chunks", len(ids)))
	}
	return nil
}

// Reset removes every chunk from storage and the indices.
func (idx *Indexer) Reset(ctx context.Context) error {
	all, err := idx.storage.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list chunks: %w", models.ErrIndexFailure, err)
	}
	ids := make([]string, len(all))
	for i, ch := range all {
		ids[i] = ch.ID
	}
	if err := idx.storage.DeleteAllChunks(ctx); err != nil {
		return fmt.Errorf("%w: failed to delete chunks: %w", models.ErrIndexFailure, err)
	}
	if err := idx.removeSecondary(ctx, ids); err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Info("indexer reset", zap.Int("chunks", len(ids)))
	}
	return nil
}

// Sync repopulates an empty keyword index from the chunk table and reconciles the vector
// index with it: IDs with no stored chunk are removed and stored embeddings missing from the
// index are added. This covers a removed index directory, a vector file that was never saved
// and one saved before later deletions.
func (idx *Indexer) Sync(ctx context.Context) error {
	needKeyword := false
	if idx.keywordIndex != nil {
		n, err := idx.keywordIndex.DocCount()
		if err != nil {
			return fmt.Errorf("%w: keyword doc count: %w", models.ErrIndexFailure, err)
		}
		needKeyword = n == 0
	}
	checkVector := idx.vectorIndex != nil && idx.embedder != nil
	if !needKeyword && !checkVector {
		return nil
	}
	chunks, err := idx.storage.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list chunks: %w", models.ErrIndexFailure, err)
	}
	if needKeyword && len(chunks) > 0 {
		if err := idx.keywordIndex.Index(ctx, chunks); err != nil {
			return fmt.Errorf("%w: failed to index keywords: %w", models.ErrIndexFailure, err)
		}
	}
	var stale, added int
	if checkVector {
		stale, added, err = idx.reconcileVectors(ctx, chunks)
		if err != nil {
			return err
		}
	}
	if idx.logger != nil && (needKeyword || stale > 0 || added > 0) {
		idx.logger.Info("indexer synced indices from storage",
			zap.Int("chunks", len(chunks)),
			zap.Bool("keyword", needKeyword),
			zap.Int("vectors_removed", stale),
			zap.Int("vectors_added", added),
		)
	}
	return nil
}

func (idx *Indexer) reconcileVectors(ctx context.Context, chunks []*models.Chunk) (int, int, error) {
	stored := make(map[string]bool, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) == idx.embedder.Dimensions() {
			stored[ch.ID] = true
		}
	}
	indexed := make(map[string]bool, idx.vectorIndex.Size())
	var stale []string
	for _, id := range idx.vectorIndex.IDs() {
		indexed[id] = true
		if !stored[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := idx.vectorIndex.Remove(ctx, stale); err != nil {
			return 0, 0, fmt.Errorf("%w: failed to remove stale vectors: %w", models.ErrIndexFailure, err)
		}
	}

	var ids []string
	var vectors [][]float32
	for _, ch := range chunks {
		if stored[ch.ID] && !indexed[ch.ID] {
			ids = append(ids, ch.ID)
			vectors = append(vectors, ch.Embedding)
		}
	}
	if len(ids) > 0 {
		if err := idx.vectorIndex.Add(ctx, ids, vectors); err != nil {
			return 0, 0, fmt.Errorf("%w: failed to index vectors: %w", models.ErrIndexFailure, err)
		}
	}
	return len(stale), len(ids), nil
}

func (idx *Indexer) chunkIDs(ctx context.Context, sourceURL string) ([]string, error) {
	old, err := idx.storage.GetChunksBySource(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get chunks: %w", models.ErrIndexFailure, err)
	}
	ids := make([]string, len(old))
	for i, ch := range old {
		ids[i] = ch.ID
	}
	return ids, nil
}

func (idx *Indexer) removeSecondary(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Delete(ctx, ids); err != nil {
			return fmt.Errorf("%w: failed to delete from keyword index: %w", models.ErrIndexFailure, err)
		}
	}
	if idx.vectorIndex != nil {
		if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
			return fmt.Errorf("%w: failed to delete from vector index: %w", models.ErrIndexFailure, err)
		}
	}
	return nil
}
