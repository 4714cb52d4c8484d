package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/testutil"
	"github.com/xuri/excelize/v2"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func docxBody(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		contentType string
		url         string
		want        string
	}{
		{"pdf by extension", "", "application/octet-stream", "https://x.org/a/Guide.PDF", FormatPDF},
		{"pdf by content type", "", "application/pdf", "https://x.org/download?id=3", FormatPDF},
		{"html by content type", "", "text/html; charset=utf-8", "https://x.org/", FormatHTML},
		{"html sniffed", "<!DOCTYPE html><html><body>x</body></html>", "", "https://x.org/page", FormatHTML},
		{"docx by extension", "", "", "https://x.org/f.docx", FormatDOCX},
		{"rtf by content type", "", "application/rtf", "https://x.org/f", FormatRTF},
		{"text/plain", "plain", "text/plain", "https://x.org/notes", FormatText},
		{"unknown binary", "\x00\x01\x02", "application/octet-stream", "https://x.org/blob", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect([]byte(tt.raw), tt.contentType, tt.url); got != tt.want {
				t.Errorf("Detect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_HTML(t *testing.T) {
	page := `<!doctype html><html><head><title> Study  Tips </title><base href="/library/"></head>
<body>
<header><a href="/header-link">Top</a></header>
<nav><a href="https://x.org/study-guide">Guide</a></nav>
<main>
  <h1>Welcome</h1>
  <p>Plan your   exam revision early.</p>
  <a href="notes.pdf#page=2">Notes</a>
  <a href="notes.pdf">Notes again</a>
  <a href="mailto:someone@x.org">Mail</a>
  <a href="javascript:void(0)">JS</a>
  <a href="#top">Top</a>
  <a href="https://other.org/x">Other</a>
</main>
<script>var secret = "hidden";</script>
<footer>Copyright</footer>
</body></html>`
	doc, err := NewExtractor().Extract([]byte(page), "text/html", "https://x.org/index.html")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Study Tips" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.Text != "Welcome Plan your exam revision early. Notes Notes again Mail JS Top Other" {
		t.Errorf("Text = %q", doc.Text)
	}
	if strings.Contains(doc.Text, "secret") || strings.Contains(doc.Text, "Copyright") {
		t.Error("boilerplate leaked into text")
	}
	want := []string{
		"https://x.org/header-link",
		"https://x.org/study-guide",
		"https://x.org/library/notes.pdf",
		"https://other.org/x",
	}
	if len(doc.Links) != len(want) {
		t.Fatalf("Links = %v", doc.Links)
	}
	for i := range want {
		if doc.Links[i] != want[i] {
			t.Errorf("Links[%d] = %q, want %q", i, doc.Links[i], want[i])
		}
	}
}

func TestExtract_HTMLBlockBoundaries(t *testing.T) {
	page := `<html><body><p>faith</p><p>grace</p><ul><li>covenant</li><li>mercy</li></ul>` +
		`<div>line<br>break</div><p>un<b>broken</b></p></body></html>`
	doc, err := NewExtractor().Extract([]byte(page), "text/html", "https://x.org/a")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "faith grace covenant mercy line break unbroken" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestExtract_HTMLTitleFallbacks(t *testing.T) {
	e := NewExtractor()
	doc, _ := e.Extract([]byte("<html><body><h1>Heading Title</h1><p>x</p></body></html>"), "text/html", "https://x.org/a")
	if doc.Title != "Heading Title" {
		t.Errorf("h1 fallback: %q", doc.Title)
	}
	doc, _ = e.Extract([]byte("<html><body><p>x</p></body></html>"), "text/html", "https://x.org/exam-tips.html")
	if doc.Title != "exam tips" {
		t.Errorf("url fallback: %q", doc.Title)
	}
}

func TestExtract_PDF(t *testing.T) {
	e := NewExtractor()
	doc, err := e.Extract(testutil.MinimalPDF("Revision Guide", "Hello PDF world"), "application/pdf", "https://x.org/files/guide.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Text, "Hello") || !strings.Contains(doc.Text, "world") {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.Title != "Revision Guide" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Links) != 0 {
		t.Errorf("documents have no links: %v", doc.Links)
	}

	doc, err = e.Extract(testutil.MinimalPDF("", "untitled"), "application/pdf", "https://x.org/files/exam_timetable.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "exam timetable" {
		t.Errorf("Title from URL = %q", doc.Title)
	}
}

func TestExtract_MalformedIsExtractionFailure(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name string
		raw  []byte
		url  string
	}{
		{"pdf", []byte("%PDF-1.4 this is not really a pdf"), "https://x.org/a.pdf"},
		{"docx not zip", []byte("not a zip"), "https://x.org/a.docx"},
		{"pptx not zip", []byte("not a zip"), "https://x.org/a.pptx"},
		{"ods missing content", zipOf(t, map[string]string{"other.xml": "<a/>"}), "https://x.org/a.ods"},
		{"xlsx garbage", []byte("garbage"), "https://x.org/a.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.raw, "", tt.url)
			if !errors.Is(err, models.ErrExtractionFailure) {
				t.Errorf("expected ErrExtractionFailure, got %v", err)
			}
		})
	}
}

func TestExtract_Plain(t *testing.T) {
	e := NewExtractor()
	doc, err := e.Extract([]byte("\ufeffHello world\nLine 2"), "text/plain", "https://x.org/readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "Hello world\nLine 2" {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.Title != "readme" {
		t.Errorf("Title = %q", doc.Title)
	}

	doc, _ = e.Extract([]byte("one\r\ntwo\rthree"), "text/plain", "https://x.org/notes.md")
	if doc.Text != "one\ntwo\nthree" {
		t.Errorf("line endings not normalized: %q", doc.Text)
	}

	doc, _ = e.Extract([]byte("valid \xff\xfe invalid"), "text/plain", "https://x.org/x.txt")
	if !strings.Contains(doc.Text, "\ufffd") {
		t.Errorf("invalid UTF-8 should be replaced: %q", doc.Text)
	}
}

func TestExtract_DOCX(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "default part",
			files: map[string]string{"word/document.xml": docxBody("Searchable docx", "second paragraph")},
			want:  "Searchable docx second paragraph",
		},
		{
			name: "part from content types",
			files: map[string]string{
				"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
					`<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/></Types>`,
				"word/document2.xml": docxBody("Content from document2"),
			},
			want: "Content from document2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := e.Extract(zipOf(t, tt.files), "", "https://x.org/file.docx")
			if err != nil {
				t.Fatal(err)
			}
			if doc.Text != tt.want {
				t.Errorf("Text = %q, want %q", doc.Text, tt.want)
			}
		})
	}
}

func TestExtract_DOCXSplitRuns(t *testing.T) {
	body := `<w:document xmlns:w="w"><w:body><w:p><w:r><w:t>Exam</w:t></w:r><w:r><w:t>ination</w:t></w:r><w:r><w:tab/><w:t>rules</w:t></w:r></w:p></w:body></w:document>`
	doc, err := NewExtractor().Extract(zipOf(t, map[string]string{"word/document.xml": body}), "", "https://x.org/f.docx")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "Examination rules" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestExtract_PPTXSlideOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	raw := zipOf(t, map[string]string{
		"ppt/slides/slide10.xml": slide("Tenth"),
		"ppt/slides/slide2.xml":  slide("Second"),
		"ppt/slides/slide1.xml":  slide("First"),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})
	doc, err := NewExtractor().Extract(raw, "", "https://x.org/deck.pptx")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "First Second Tenth" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestExtract_ODF(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		content string
		want    string
	}{
		{
			name:    "ods cells",
			url:     "https://x.org/grades.ods",
			content: `<office:document-content><office:body><table:table><table:table-row><table:table-cell><text:p>Cell A</text:p></table:table-cell><table:table-cell><text:span>Cell B</text:span></table:table-cell></table:table-row></table:table></office:body></office:document-content>`,
			want:    "Cell A Cell B",
		},
		{
			name:    "odp heading and paragraph",
			url:     "https://x.org/talk.odp",
			content: `<office:document-content><office:body><draw:page><text:h>Slide title</text:h><text:p>Body<text:s/>text</text:p></draw:page></office:body></office:document-content>`,
			want:    "Slide title Body text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewExtractor().Extract(zipOf(t, map[string]string{"content.xml": tt.content}), "", tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if doc.Text != tt.want {
				t.Errorf("Text = %q, want %q", doc.Text, tt.want)
			}
		})
	}
}

func TestExtract_Excel(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Subject")
	_ = f.SetCellValue("Sheet1", "B1", "Hours")
	_ = f.SetCellValue("Sheet1", "A2", "Maths")
	_ = f.SetCellValue("Sheet1", "B2", 12)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	doc, err := NewExtractor().Extract(buf.Bytes(), "", "https://x.org/plan.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "Sheet1\nSubject\tHours\nMaths\t12" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := map[string]string{
		"https://x.org/files/exam-tips_2024.pdf": "exam tips 2024",
		"https://x.org/docs/Study%20Guide.docx":  "Study Guide",
		"https://x.org/":                         "x.org",
		"https://x.org":                          "x.org",
	}
	for in, want := range tests {
		if got := TitleFromURL(in); got != want {
			t.Errorf("TitleFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
