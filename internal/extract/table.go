package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// CSVExtractor renders a CSV file as an aligned text table.
type CSVExtractor struct{}

// XLSXExtractor renders every sheet of a workbook as an aligned text table.
type XLSXExtractor struct{}

var (
	_ Extractor = (*CSVExtractor)(nil)
	_ Extractor = (*XLSXExtractor)(nil)
)

func (CSVExtractor) Extract(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", ReadFailureError(path, "cannot open file", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", ReadFailureError(path, "invalid CSV", err)
		}
		rows = append(rows, rec)
	}
	return renderTable(rows), nil
}

func (XLSXExtractor) Extract(ctx context.Context, path string) (string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", ReadFailureError(path, "cannot open workbook", err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	parts := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", ReadFailureError(path, fmt.Sprintf("cannot read sheet %q", sheet), err)
		}
		table := renderTable(rows)
		if table == "" {
			continue
		}
		if len(sheets) > 1 {
			table = sheet + "\n" + table
		}
		parts = append(parts, table)
	}
	return strings.Join(parts, "\n\n"), nil
}

// renderTable right-aligns each column to its widest cell, header row
// first, one line per row, columns separated by a single space.
func renderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	if width == 0 {
		return ""
	}

	colWidths := make([]int, width)
	for _, row := range rows {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], utf8.RuneCountInString(cleanCell(cell)))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		var line strings.Builder
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = cleanCell(row[i])
			}
			if i > 0 {
				line.WriteByte(' ')
			}
			fmt.Fprintf(&line, "%*s", colWidths[i], cell)
		}
		text := strings.TrimRight(line.String(), " ")
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// cleanCell keeps a cell on one line.
func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
