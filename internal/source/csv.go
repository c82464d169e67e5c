package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"cablesync/internal/normalizer"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVParser struct {
	columns Columns
}

func NewCSVParser(columns Columns) *CSVParser {
	return &CSVParser{columns: columns}
}

func (p *CSVParser) Parse(ctx context.Context, data []byte) ([]normalizer.RawRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	next := func() (*numberedRecord, error) {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		return &numberedRecord{line: line, fields: fields}, nil
	}

	return rowsFromRecords(ctx, next, p.columns)
}

// sniffDelimiter picks ';' when the first line has more semicolons than commas.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		return ';'
	}
	return ','
}
