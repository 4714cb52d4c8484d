package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel streams every sheet row by row. Each sheet with content starts with its
// name on its own line; cells are tab separated and blank rows are skipped.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := sheetLines(f, sheet)
		if err != nil {
			return "", err
		}
		if len(rows) > 0 {
			lines = append(lines, sheet)
			lines = append(lines, rows...)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func sheetLines(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if line := strings.TrimSpace(strings.Join(cols, "\t")); line != "" {
			out = append(out, line)
		}
	}
	return out, rows.Error()
}
