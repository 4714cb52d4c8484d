package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Site is a fake website. Pages and files can be changed between requests.
type Site struct {
	*httptest.Server

	mu    sync.Mutex
	pages map[string]resource
	hits  map[string]int
}

type resource struct {
	contentType string
	body        []byte
}

// NewSite starts an empty site that is closed when the test ends.
func NewSite(t testing.TB) *Site {
	t.Helper()
	s := &Site{pages: make(map[string]resource), hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res, ok := s.pages[r.URL.Path]
	s.hits[r.URL.Path]++
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", res.contentType)
	_, _ = w.Write(res.body)
}

// HTML serves an HTML page at path with the given title, body text and links.
func (s *Site) HTML(path, title, text string, links ...string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<!doctype html><html><head><title>%s</title></head><body>", title)
	b.WriteString("<nav><a href=\"/\">Home</a></nav><main>")
	fmt.Fprintf(&b, "<p>%s</p>", text)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</main><script>var tracking = 1;</script></body></html>")
	s.Raw(path, "text/html; charset=utf-8", []byte(b.String()))
}

// PDF serves a single-page PDF at path.
func (s *Site) PDF(path, title, text string) {
	s.Raw(path, "application/pdf", MinimalPDF(title, text))
}

// Raw serves body at path with the given content type.
func (s *Site) Raw(path, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = resource{contentType: contentType, body: body}
}

// Remove makes path return 404.
func (s *Site) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, path)
}

// Hits returns how many times path was requested.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// URLFor returns the absolute URL of path.
func (s *Site) URLFor(path string) string {
	return s.Server.URL + path
}
