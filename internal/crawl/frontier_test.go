package crawl

import (
	"testing"
)

func TestFrontier_FIFOAndVisited(t *testing.T) {
	f := NewFrontier()
	f.Push("a", 0)
	f.Push("b", 1)
	f.Push("a", 2) // queued twice, popped once

	e, ok := f.Pop()
	if !ok || e.URL != "a" || e.Depth != 0 {
		t.Fatalf("first pop: %+v %v", e, ok)
	}
	f.Push("a", 3) // already visited, ignored
	e, _ = f.Pop()
	if e.URL != "b" || e.Depth != 1 {
		t.Errorf("second pop: %+v", e)
	}
	if _, ok := f.Pop(); ok {
		t.Error("expected drained frontier")
	}
	if !f.Visited("a") || !f.Visited("b") || f.Visited("c") {
		t.Error("visited set mismatch")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTP://Example.ORG:80/a/../study#frag", "http://example.org/study"},
		{"https://example.org:443//x//y", "https://example.org/x/y"},
		{"https://example.org/p?b=2&a=1", "https://example.org/p?a=1&b=2"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSameHost(t *testing.T) {
	tests := []struct {
		url, host string
		want      bool
	}{
		{"https://Example.org/a", "example.org", true},
		{"http://example.org:80/a", "example.org", true},
		{"https://example.org:8443/a", "example.org", false},
		{"https://example.org:8443/a", "example.org:8443", true},
		{"https://sub.example.org/a", "example.org", false},
	}
	for _, tt := range tests {
		if got := SameHost(tt.url, tt.host); got != tt.want {
			t.Errorf("SameHost(%q, %q) = %v", tt.url, tt.host, got)
		}
	}
}

func TestLinkPredicates(t *testing.T) {
	exts := []string{".pdf"}
	if !HasExtension("https://x.org/files/Guide.PDF?dl=1", exts) {
		t.Error("expected .PDF to match")
	}
	if HasExtension("https://x.org/pdf/guide", exts) {
		t.Error("directory named pdf is not a document")
	}
	keywords := []string{"study", "Bible"}
	if !ContainsKeyword("https://x.org/BIBLE-studies", keywords) {
		t.Error("keyword match is case-insensitive")
	}
	if ContainsKeyword("https://x.org/about", keywords) {
		t.Error("unexpected keyword match")
	}
	if !ContainsKeyword("https://x.org/about", nil) {
		t.Error("empty allow list matches everything")
	}
}
