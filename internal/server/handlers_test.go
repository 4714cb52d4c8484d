package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/pipeline"
	"github.com/hyperjump/yomu/internal/storage"
)

type mockAsker struct {
	answer *models.Answer
	err    error
	got    *models.AskRequest
}

func (m *mockAsker) Ask(_ context.Context, req *models.AskRequest) (*models.Answer, error) {
	m.got = req
	return m.answer, m.err
}

type mockIngester struct {
	report  *pipeline.Report
	err     error
	got     *models.IngestRequest
	release chan struct{}
	started chan struct{}
}

func (m *mockIngester) Run(_ context.Context, req *models.IngestRequest) (*pipeline.Report, error) {
	m.got = req
	if m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		<-m.release
	}
	return m.report, m.err
}

func newTestServer(t *testing.T, asker Asker, ingester Ingester) (*Server, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(t.TempDir() + "/db.sqlite")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	status := func(ctx context.Context) (*pipeline.Status, error) {
		return pipeline.CollectStatus(ctx, store, nil, &config.StorageConfig{})
	}
	return NewServer(asker, ingester, store, status, &config.ServerConfig{Port: 8080}, nil), store
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleAsk(t *testing.T) {
	asker := &mockAsker{answer: &models.Answer{Question: "what is grace?", Text: "Grace is favor."}}
	srv, _ := newTestServer(t, asker, nil)

	w := do(t, srv.Router(), http.MethodPost, "/api/v1/ask", map[string]interface{}{"question": " what is grace? ", "top_k": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.Answer
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Text != "Grace is favor." {
		t.Errorf("answer: got %q", out.Text)
	}
	if asker.got.Question != "what is grace?" || asker.got.TopK != 2 {
		t.Errorf("request: got %+v", asker.got)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, &mockAsker{}, nil)
	h := srv.Router()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json: got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/v1/ask", map[string]string{"question": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty question: got %d", w.Code)
	}
}

func TestHandleAsk_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: no embedder", models.ErrConfiguration), http.StatusServiceUnavailable},
		{errors.New("completion failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv, _ := newTestServer(t, &mockAsker{err: tt.err}, nil)
		w := do(t, srv.Router(), http.MethodPost, "/api/v1/ask", map[string]string{"question": "why?"})
		if w.Code != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestHandleIngest(t *testing.T) {
	ing := &mockIngester{report: &pipeline.Report{RunID: "run-1", Processed: 3}}
	srv, _ := newTestServer(t, &mockAsker{}, ing)

	w := do(t, srv.Router(), http.MethodPost, "/api/v1/ingest", map[string]interface{}{
		"seed_url": "https://example.com/", "max_depth": 0, "full_reset": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out pipeline.Report
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.RunID != "run-1" || out.Processed != 3 {
		t.Errorf("report: got %+v", out)
	}
	if ing.got.SeedURL != "https://example.com/" || !ing.got.FullReset {
		t.Errorf("request: got %+v", ing.got)
	}
	if ing.got.MaxDepth == nil || *ing.got.MaxDepth != 0 {
		t.Errorf("max_depth: got %v", ing.got.MaxDepth)
	}

	w = do(t, srv.Router(), http.MethodPost, "/api/v1/ingest", nil)
	if w.Code != http.StatusOK {
		t.Errorf("empty body: got %d", w.Code)
	}
}

func TestHandleIngest_Busy(t *testing.T) {
	ing := &mockIngester{
		report:  &pipeline.Report{},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	srv, _ := newTestServer(t, &mockAsker{}, ing)
	h := srv.Router()

	done := make(chan int)
	go func() {
		done <- do(t, h, http.MethodPost, "/api/v1/ingest", nil).Code
	}()
	select {
	case <-ing.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first ingestion did not start")
	}

	w := do(t, h, http.MethodPost, "/api/v1/ingest", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent ingest: got %d", w.Code)
	}
	close(ing.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first ingest: got %d", code)
	}
}

func TestHandleIngest_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t, &mockAsker{}, nil)
	w := do(t, srv.Router(), http.MethodPost, "/api/v1/ingest", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleSourcesAndEvents(t *testing.T) {
	srv, store := newTestServer(t, &mockAsker{}, nil)
	ctx := context.Background()
	if err := store.UpsertSource(ctx, &models.Source{URL: "https://example.com/", Kind: models.KindPage, Status: models.StatusChanged}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		ev := &models.Event{RunID: "r", SourceURL: "https://example.com/", Kind: models.EventScanPage, Timestamp: time.Now()}
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	h := srv.Router()

	w := do(t, h, http.MethodGet, "/api/v1/sources", nil)
	var sources struct {
		Sources []models.Source `json:"sources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&sources); err != nil {
		t.Fatal(err)
	}
	if len(sources.Sources) != 1 || sources.Sources[0].URL != "https://example.com/" {
		t.Errorf("sources: got %+v", sources.Sources)
	}

	w = do(t, h, http.MethodGet, "/api/v1/events?limit=2", nil)
	var events struct {
		Events []models.Event `json:"events"`
	}
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events.Events) != 2 {
		t.Errorf("events: got %d, want 2", len(events.Events))
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, &mockAsker{}, nil)
	h := srv.Router()

	w := do(t, h, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var st pipeline.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Sources != 0 || st.Chunks != 0 {
		t.Errorf("status: got %+v", st)
	}

	w = do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
}
