package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"cablesync/internal/normalizer"
)

type XLSXParser struct {
	columns Columns
	sheet   string
}

// NewXLSXParser reads the named sheet, or the first sheet when sheet is empty.
func NewXLSXParser(columns Columns, sheet string) *XLSXParser {
	return &XLSXParser{columns: columns, sheet: sheet}
}

func (p *XLSXParser) Parse(ctx context.Context, data []byte) ([]normalizer.RawRow, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx workbook: %w", err)
	}
	defer book.Close()

	sheet := p.sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := book.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	line := 0
	next := func() (*numberedRecord, error) {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
			}
			return nil, nil
		}
		line++
		fields, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q row %d: %w", sheet, line, err)
		}
		return &numberedRecord{line: line, fields: fields}, nil
	}

	return rowsFromRecords(ctx, next, p.columns)
}
