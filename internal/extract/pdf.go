package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the page text and the Info dictionary title, if any.
// The reader panics on some malformed files; that is reported as an error.
func extractPDF(content []byte) (text, title string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, title, err = "", "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", "", fmt.Errorf("open PDF: %w", err)
	}
	title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())

	var buf strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", "", fmt.Errorf("extract page %d: %w", i, err)
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(pageText)
	}
	return strings.TrimSpace(buf.String()), title, nil
}
