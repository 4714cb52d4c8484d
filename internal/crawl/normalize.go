package crawl

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/purell"
)

const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveFragment |
	purell.FlagDecodeUnnecessaryEscapes |
	purell.FlagSortQuery |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveDotSegments

// Normalize canonicalizes a URL so that trivially different spellings share one visited entry.
func Normalize(rawURL string) (string, error) {
	return purell.NormalizeURLString(rawURL, normalizeFlags)
}

// HostKey is the host used for same-site checks: lowercased, default ports dropped.
// The scheme is ignored.
func HostKey(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	switch port := u.Port(); port {
	case "", "80", "443":
		return host
	default:
		return host + ":" + port
	}
}

// SameHost reports whether rawURL is on host (a HostKey).
func SameHost(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return HostKey(u) == host
}

// HasExtension reports whether the URL path ends in one of exts (case-insensitive, with dot).
func HasExtension(rawURL string, exts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// ContainsKeyword reports whether the lowercased URL contains any keyword.
// An empty keyword list matches everything.
func ContainsKeyword(rawURL string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(rawURL)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
