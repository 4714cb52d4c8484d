package e2e

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/yomu/internal/answer"
	"github.com/hyperjump/yomu/internal/changes"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fetch"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/pipeline"
	"github.com/hyperjump/yomu/internal/retrieval"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/testutil"
	"github.com/hyperjump/yomu/internal/vector"
)

const (
	e2eTopK       = 5
	e2eDimensions = 8
	e2eTitleBonus = 5
)

type ingested struct {
	corpus  *Corpus
	site    *testutil.Site
	store   storage.Storage
	kw      keyword.KeywordIndex
	vectors *vector.MemoryIndex
	report  *pipeline.Report
}

func ingestCorpus(t *testing.T) *ingested {
	t.Helper()
	dir := t.TempDir()
	corpus := BuildCorpus()
	site := testutil.NewSite(t)
	if err := corpus.Publish(site); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	vectors, err := vector.NewMemoryIndex(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.CrawlConfig{
		SeedURL:            site.URLFor("/"),
		MaxDepth:           1,
		MaxPages:           len(corpus.Pages) + 10,
		Delay:              "0s",
		AllowKeywords:      []string{"study"},
		DocumentExtensions: SupportedFileExtensions,
	}
	idx := indexer.NewIndexer(store, embedding.NewMockEmbedder(e2eDimensions), vectors, kw,
		&config.ChunkingConfig{Size: 200, Overlap: 20})
	p := pipeline.New(store, changes.NewTracker(store), idx, fetch.NewFetcher(cfg), extract.NewExtractor(), cfg,
		pipeline.WithVectorFile(vectors, filepath.Join(dir, "vectors.bin")))

	report, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return &ingested{corpus: corpus, site: site, store: store, kw: kw, vectors: vectors, report: report}
}

func TestE2E_IngestsWholeCorpus(t *testing.T) {
	in := ingestCorpus(t)
	docs := in.corpus.Documents()
	pages := len(in.corpus.Pages) - docs + 1

	if in.report.Pages != pages {
		t.Errorf("expected %d pages, got %d", pages, in.report.Pages)
	}
	if in.report.Documents != docs {
		t.Errorf("expected %d documents, got %d", docs, in.report.Documents)
	}
	if in.report.Processed != pages+docs {
		t.Errorf("expected %d processed, got %d", pages+docs, in.report.Processed)
	}
	if in.report.Failed != 0 || in.report.FetchFailed != 0 {
		t.Errorf("unexpected failures: %+v", in.report)
	}

	n, err := in.store.CountChunks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != in.report.Chunks || in.vectors.Size() != in.report.Chunks {
		t.Errorf("chunk counts disagree: store=%d vectors=%d report=%d", n, in.vectors.Size(), in.report.Chunks)
	}
	kwCount, err := in.kw.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if int(kwCount) != in.report.Chunks {
		t.Errorf("keyword index holds %d chunks, want %d", kwCount, in.report.Chunks)
	}
}

func TestE2E_RetrievalFindsExpectedSource(t *testing.T) {
	in := ingestCorpus(t)
	ctx := context.Background()

	for _, strategy := range []string{config.StrategyLexical, config.StrategyKeyword} {
		r, err := retrieval.New(&config.RetrievalConfig{Strategy: strategy, TitleBonus: e2eTitleBonus},
			retrieval.Dependencies{Store: in.store, Keywords: in.kw})
		if err != nil {
			t.Fatal(err)
		}
		t.Run(strategy, func(t *testing.T) {
			for _, tc := range in.corpus.TestCases {
				t.Run(tc.Description, func(t *testing.T) {
					results, err := r.Retrieve(ctx, tc.Query, e2eTopK)
					if err != nil {
						t.Fatalf("retrieve: %v", err)
					}
					want := in.site.URLFor(tc.ExpectedPath)
					urls := sourceURLs(results)
					if !contains(urls, want) {
						t.Errorf("query %q: expected %s in top %d, got %v", tc.Query, want, e2eTopK, urls)
					}
				})
			}
		})
	}
}

func TestE2E_AnswerCitesExpectedSource(t *testing.T) {
	in := ingestCorpus(t)
	r, err := retrieval.New(&config.RetrievalConfig{Strategy: config.StrategyLexical, TitleBonus: e2eTitleBonus},
		retrieval.Dependencies{Store: in.store})
	if err != nil {
		t.Fatal(err)
	}
	svc := answer.NewService(r, answer.NewComposer(nil, nil), 3, in.store, nil)

	tc := in.corpus.TestCases[0]
	ans, err := svc.Ask(context.Background(), &models.AskRequest{Question: tc.Query})
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Citations) == 0 || ans.Citations[0].URL != in.site.URLFor(tc.ExpectedPath) {
		t.Errorf("expected first citation %s, got %+v", in.site.URLFor(tc.ExpectedPath), ans.Citations)
	}
	if ans.Generated {
		t.Error("expected an extractive answer")
	}
}

func sourceURLs(results []*models.Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Chunk != nil {
			urls = append(urls, r.Chunk.SourceURL)
		}
	}
	return urls
}

func contains(got []string, want string) bool {
	for _, g := range got {
		if g == want {
			return true
		}
	}
	return false
}
