package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/yomu/internal/testutil"
)

// SupportedFileExtensions are the document types the corpus publishes. The extractor also
// reads .odt and .rtf through the same converter; those are covered by its own tests.
var SupportedFileExtensions = []string{
	".pdf", ".txt", ".md", ".docx", ".xlsx", ".pptx", ".odp", ".ods",
}

// WriteMinimalFile returns the bytes of a minimal document of type ext holding a title
// paragraph followed by text.
func WriteMinimalFile(ext, title, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md", ".rst":
		return []byte(title + "\n\n" + text + "\n"), nil
	case ".pdf":
		return testutil.MinimalPDF(title, text), nil
	case ".docx":
		return zipped("word/document.xml",
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+
				paragraphs(`<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, title, text)+`</w:body></w:document>`)
	case ".pptx":
		return zipped("ppt/slides/slide1.xml",
			`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody>`+
				paragraphs(`<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, title, text)+`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	case ".odp":
		return zipped("content.xml",
			`<office:document><office:body><draw:page><draw:text-box>`+
				paragraphs(`<text:p>%s</text:p>`, title, text)+`</draw:text-box></draw:page></office:body></office:document>`)
	case ".ods":
		return zipped("content.xml",
			`<office:document><office:body><table:table>`+
				paragraphs(`<table:table-row><table:table-cell><text:p>%s</text:p></table:table-cell></table:table-row>`, title, text)+
				`</table:table></office:body></office:document>`)
	case ".xlsx":
		return workbook(title, text)
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}
}

func paragraphs(format string, texts ...string) string {
	var b strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&b, format, t)
	}
	return b.String()
}

func zipped(name, content string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func workbook(title, text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetCellValue("Sheet1", "A2", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
