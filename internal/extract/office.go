package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultMainPath = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
	odfContentPath      = "content.xml"
)

// xmlText streams an XML part and collects character data.
type xmlText struct {
	// textIn restricts collection to character data inside these local names; nil collects all.
	textIn map[string]bool
	// breakAfter ends a text block after these local names.
	breakAfter map[string]bool
	// spaceAt inserts a space for these (usually empty) elements, e.g. tabs.
	spaceAt map[string]bool
}

var (
	ooxmlText = xmlText{
		textIn:     map[string]bool{"t": true},
		breakAfter: map[string]bool{"p": true},
		spaceAt:    map[string]bool{"tab": true, "br": true},
	}
	odfText = xmlText{
		breakAfter: map[string]bool{"p": true, "h": true, "table-cell": true, "list-item": true},
		spaceAt:    map[string]bool{"s": true, "tab": true, "line-break": true},
	}
)

func (x xmlText) extract(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	var b strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if x.textIn[t.Name.Local] {
				depth++
			}
			if x.spaceAt[t.Name.Local] {
				b.WriteByte(' ')
			}
		case xml.EndElement:
			if x.textIn[t.Name.Local] && depth > 0 {
				depth--
			}
			if x.breakAfter[t.Name.Local] {
				b.WriteByte('\n')
			}
		case xml.CharData:
			if x.textIn == nil || depth > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip archive: %w", err)
	}
	return zr, nil
}

func zipPartText(zr *zip.Reader, name string, x xmlText) (string, error) {
	f, err := zr.Open(name)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	text, err := x.extract(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return text, nil
}

// docxMainPath reads [Content_Types].xml for the main document part, which is not
// always word/document.xml.
func docxMainPath(zr *zip.Reader) string {
	f, err := zr.Open(contentTypesPath)
	if err != nil {
		return docxDefaultMainPath
	}
	defer f.Close()
	var types struct {
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.NewDecoder(f).Decode(&types); err != nil {
		return docxDefaultMainPath
	}
	for _, o := range types.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDefaultMainPath
}

func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	text, err := zipPartText(zr, docxMainPath(zr), ooxmlText)
	if err != nil {
		return "", err
	}
	return collapse(text), nil
}

// extractPPTX returns the text of every slide in slide-number order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) || path.Ext(f.Name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		text, err := zipPartText(zr, s.name, ooxmlText)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return collapse(strings.Join(parts, "\n")), nil
}

// extractODF reads content.xml of OpenDocument spreadsheets and presentations.
func extractODF(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	text, err := zipPartText(zr, odfContentPath, odfText)
	if err != nil {
		return "", err
	}
	return collapse(text), nil
}
