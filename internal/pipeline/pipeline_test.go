package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/yomu/internal/answer"
	"github.com/hyperjump/yomu/internal/changes"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fetch"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/retrieval"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/testutil"
	"github.com/hyperjump/yomu/internal/vector"
)

type harness struct {
	pipeline *Pipeline
	store    storage.Storage
	vectors  *vector.MemoryIndex
	dir      string
}

func newHarness(t *testing.T, seed string, embedder embedding.Embedder) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })
	vecs, err := vector.NewMemoryIndex(16)
	require.NoError(t, err)

	cfg := &config.CrawlConfig{
		SeedURL:            seed,
		MaxDepth:           1,
		MaxPages:           10,
		Delay:              "0s",
		AllowKeywords:      []string{"study"},
		DocumentExtensions: []string{".pdf"},
	}
	idx := indexer.NewIndexer(store, embedder, vecs, kw, &config.ChunkingConfig{Size: 20, Overlap: 5})
	p := New(store, changes.NewTracker(store), idx, fetch.NewFetcher(cfg), extract.NewExtractor(), cfg,
		WithVectorFile(vecs, filepath.Join(dir, "vectors.bin")))
	return &harness{pipeline: p, store: store, vectors: vecs, dir: dir}
}

// newStudySite serves two pages and one PDF reachable from the seed.
func newStudySite(t *testing.T) *testutil.Site {
	site := testutil.NewSite(t)
	site.HTML("/", "Home", "Welcome to the ministry.", "/study-one", "/files/guide.pdf")
	site.HTML("/study-one", "Study One", "Grace abounds where faith is planted.")
	site.PDF("/files/guide.pdf", "Guide", "A reading guide for covenant study")
	return site
}

func eventKinds(t *testing.T, store storage.Storage) map[string]int {
	t.Helper()
	events, err := store.ListEvents(context.Background(), 1000)
	require.NoError(t, err)
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Kind]++
	}
	return counts
}

func TestRun_IncrementalIngestion(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), embedding.NewMockEmbedder(16))

	first, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, 2, first.Pages)
	assert.Equal(t, 1, first.Documents)
	assert.Equal(t, 3, first.Processed)
	assert.Equal(t, 0, first.Unchanged)
	assert.Equal(t, 0, first.Failed)
	assert.GreaterOrEqual(t, first.Chunks, 3)

	n, err := h.store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(first.Chunks), n)
	assert.Equal(t, first.Chunks, h.vectors.Size())
	assert.FileExists(t, filepath.Join(h.dir, "vectors.bin"))

	second, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 3, second.Unchanged)
	assert.Equal(t, 0, second.Chunks)
	assert.NotEqual(t, first.RunID, second.RunID)

	site.HTML("/study-one", "Study One", "Hope is renewed every morning.")
	third, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Processed)
	assert.Equal(t, 2, third.Unchanged)

	kinds := eventKinds(t, h.store)
	assert.Equal(t, 3, kinds[models.EventStartIngest])
	assert.Equal(t, 4, kinds[models.EventChangedOrNew])
	assert.Equal(t, 5, kinds[models.EventUnchangedSkip])
	assert.Equal(t, 4, kinds[models.EventIngestedChunks])
	assert.Equal(t, 3, kinds[models.EventFoundDocument])
}

func TestRun_AnswersFromIngestedContent(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), nil)
	_, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)

	r, err := retrieval.New(&config.RetrievalConfig{Strategy: config.StrategyLexical, TitleBonus: 5},
		retrieval.Dependencies{Store: h.store})
	require.NoError(t, err)
	svc := answer.NewService(r, answer.NewComposer(nil, nil), 3, h.store, nil)

	ans, err := svc.Ask(ctx, &models.AskRequest{Question: "Where does grace abound?"})
	require.NoError(t, err)
	require.NotEmpty(t, ans.Citations)
	assert.Equal(t, site.URLFor("/study-one"), ans.Citations[0].URL)
	assert.Contains(t, ans.Text, "Grace abounds")

	ans, err = svc.Ask(ctx, &models.AskRequest{Question: "zebra xylophone"})
	require.NoError(t, err)
	assert.Equal(t, answer.NoResultsMessage, ans.Text)
}

func TestRun_FullReset(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), nil)
	_, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)

	report, err := h.pipeline.Run(ctx, &models.IngestRequest{FullReset: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 0, report.Unchanged)
	assert.Equal(t, 1, eventKinds(t, h.store)[models.EventReset])
}

func TestRun_RequestOverrides(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, "", nil)

	_, err := h.pipeline.Run(ctx, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	depth := 0
	report, err := h.pipeline.Run(ctx, &models.IngestRequest{SeedURL: site.URLFor("/"), MaxDepth: &depth})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 0, report.Documents)
	assert.Equal(t, site.URLFor("/"), report.Seed)
}

func TestRun_FetchAndExtractFailures(t *testing.T) {
	ctx := context.Background()
	site := testutil.NewSite(t)
	site.HTML("/", "Home", "Welcome.", "/study-missing", "/files/broken.pdf")
	site.Raw("/files/broken.pdf", "application/pdf", []byte("%PDF-1.4 not really"))
	h := newHarness(t, site.URLFor("/"), nil)

	report, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FetchFailed)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Failed)

	kinds := eventKinds(t, h.store)
	assert.Equal(t, 1, kinds[models.EventFetchFailed])
	assert.Equal(t, 1, kinds[models.EventExtractFailed])

	chunks, err := h.store.GetChunksBySource(ctx, site.URLFor("/files/broken.pdf"))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	src, err := h.store.GetSource(ctx, site.URLFor("/files/broken.pdf"))
	require.NoError(t, err)
	assert.NotEmpty(t, src.Fingerprint)
}

type failingEmbedder struct{ embedding.Embedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func TestRun_IndexFailureIsRetriedNextRun(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), failingEmbedder{embedding.NewMockEmbedder(16)})

	report, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 3, eventKinds(t, h.store)[models.EventIndexFailed])

	src, err := h.store.GetSource(ctx, site.URLFor("/study-one"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, src.Status)

	report, err = h.pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unchanged)
	assert.Equal(t, 3, report.Failed)
}

func TestRun_Cancelled(t *testing.T) {
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.pipeline.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Processed)
}

func TestCollectStatus(t *testing.T) {
	ctx := context.Background()
	site := newStudySite(t)
	h := newHarness(t, site.URLFor("/"), embedding.NewMockEmbedder(16))
	_, err := h.pipeline.Run(ctx, nil)
	require.NoError(t, err)

	st, err := CollectStatus(ctx, h.store, h.vectors, &config.StorageConfig{
		DatabasePath:    filepath.Join(h.dir, "db.sqlite"),
		VectorIndexPath: filepath.Join(h.dir, "vectors.bin"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Sources)
	assert.Equal(t, int64(3), st.Chunks)
	assert.Equal(t, 3, st.Vectors)
	assert.Greater(t, st.Events, int64(0))
	assert.Greater(t, st.DiskUsageBytes, int64(0))
}
