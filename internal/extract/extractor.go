// Package extract turns fetched bytes (HTML, PDF, office documents, plain text) into
// plain text, a title and, for HTML, outbound links.
package extract

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hyperjump/yomu/internal/models"
)

// Formats understood by the extractor.
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatXLSX = "xlsx"
	FormatPPTX = "pptx"
	FormatODT  = "odt"
	FormatODS  = "ods"
	FormatODP  = "odp"
	FormatRTF  = "rtf"
	FormatText = "text"
)

var extFormats = map[string]string{
	".html": FormatHTML,
	".htm":  FormatHTML,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".xlsx": FormatXLSX,
	".pptx": FormatPPTX,
	".odt":  FormatODT,
	".ods":  FormatODS,
	".odp":  FormatODP,
	".rtf":  FormatRTF,
	".txt":  FormatText,
	".md":   FormatText,
	".rst":  FormatText,
}

var mediaFormats = map[string]string{
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"application/pdf":       FormatPDF,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.oasis.opendocument.text":                                   FormatODT,
	"application/vnd.oasis.opendocument.spreadsheet":                            FormatODS,
	"application/vnd.oasis.opendocument.presentation":                           FormatODP,

	"application/rtf": FormatRTF,
	"text/rtf":        FormatRTF,
}

// Document is the extracted content of one fetched resource.
type Document struct {
	Title string
	Text  string
	// Links are absolute http(s) URLs found in the document, in document order, without duplicates.
	Links []string
}

// Extractor converts raw bytes into a Document.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Detect picks a format from the URL path extension, then the Content-Type header,
// then by sniffing the bytes.
func Detect(raw []byte, contentType, rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if f, ok := extFormats[strings.ToLower(path.Ext(u.Path))]; ok {
			return f
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := mediaFormats[mt]; ok {
			return f
		}
		if strings.HasPrefix(mt, "text/") {
			return FormatText
		}
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(raw))
	if f, ok := mediaFormats[sniffed]; ok {
		return f
	}
	return FormatText
}

// Extract returns the text of raw. Malformed input wraps models.ErrExtractionFailure;
// callers treat it as empty text.
func (e *Extractor) Extract(raw []byte, contentType, rawURL string) (*Document, error) {
	format := Detect(raw, contentType, rawURL)
	if format == FormatHTML {
		doc, err := extractHTML(raw, rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", models.ErrExtractionFailure, rawURL, err)
		}
		return doc, nil
	}

	var (
		text, title string
		err         error
	)
	switch format {
	case FormatPDF:
		text, title, err = extractPDF(raw)
	case FormatDOCX:
		text, err = extractDOCX(raw)
	case FormatXLSX:
		text, err = extractExcel(raw)
	case FormatPPTX:
		text, err = extractPPTX(raw)
	case FormatODS, FormatODP:
		text, err = extractODF(raw)
	case FormatODT, FormatRTF:
		text, err = extractWithCat(raw)
	default:
		text, err = extractPlain(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", models.ErrExtractionFailure, rawURL, format, err)
	}
	if title == "" {
		title = TitleFromURL(rawURL)
	}
	return &Document{Title: title, Text: text}, nil
}

// TitleFromURL derives a readable title from the last path segment, e.g.
// "https://x.org/files/exam-tips_2024.pdf" gives "exam tips 2024". Falls back to the host.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '+'
	}), " ")
	if base == "" || base == "." || base == "/" {
		return u.Host
	}
	return base
}
