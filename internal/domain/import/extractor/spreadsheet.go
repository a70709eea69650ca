package extractor

import (
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/spendtrack/spendtrack/internal/domain/import/parser"
)

// extractSpreadsheet loads the first sheet of a workbook and converts it to
// rows keyed by the header line. Spreadsheets carry their own structure, so
// this path bypasses the line parser entirely.
func (e *Extractor) extractSpreadsheet(path, ext string) ([]parser.Row, error) {
	if ext == ".xls" {
		return e.extractXLS(path)
	}
	return e.extractXLSX(path)
}

func (e *Extractor) extractXLSX(path string) ([]parser.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return tableToRows(rows), nil
}

func (e *Extractor) extractXLS(path string) ([]parser.Row, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	table := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		table = append(table, cells)
	}

	return tableToRows(table), nil
}

// tableToRows maps data rows onto the header row. Cells beyond the header
// width are ignored; fully empty rows are skipped.
func tableToRows(table [][]string) []parser.Row {
	if len(table) == 0 {
		return nil
	}

	headers := table[0]
	rows := make([]parser.Row, 0, len(table)-1)

	for _, cells := range table[1:] {
		row := parser.Row{}
		empty := true
		for i, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" || i >= len(cells) {
				continue
			}
			value := strings.TrimSpace(cells[i])
			row[header] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return rows
}
