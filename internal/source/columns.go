package source

import (
	"context"
	"fmt"
	"strings"

	"cablesync/internal/config"
	"cablesync/internal/normalizer"
)

// Columns names the header cells holding each entity field. Matching ignores case
// and surrounding spaces.
type Columns struct {
	Code     string
	Status   string
	MeasureA string
	MeasureB string
}

func DefaultColumns() Columns {
	return Columns{
		Code:     "code",
		Status:   "status",
		MeasureA: "measure_a",
		MeasureB: "measure_b",
	}
}

func ColumnsFromConfig(cfg config.ColumnsConfig) Columns {
	columns := DefaultColumns()
	if cfg.Code != "" {
		columns.Code = cfg.Code
	}
	if cfg.Status != "" {
		columns.Status = cfg.Status
	}
	if cfg.MeasureA != "" {
		columns.MeasureA = cfg.MeasureA
	}
	if cfg.MeasureB != "" {
		columns.MeasureB = cfg.MeasureB
	}
	return columns
}

func headerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// layout maps a header row onto column positions. -1 marks an absent column.
type layout struct {
	code, status, measureA, measureB int
	extra                            map[int]string
}

func newLayout(header []string, columns Columns) (*layout, error) {
	l := &layout{code: -1, status: -1, measureA: -1, measureB: -1, extra: make(map[int]string)}

	for i, name := range header {
		switch key := headerKey(name); key {
		case "":
			continue
		case headerKey(columns.Code):
			l.code = i
		case headerKey(columns.Status):
			l.status = i
		case headerKey(columns.MeasureA):
			l.measureA = i
		case headerKey(columns.MeasureB):
			l.measureB = i
		default:
			l.extra[i] = strings.TrimSpace(name)
		}
	}

	if l.code < 0 {
		return nil, fmt.Errorf("header has no %q column", columns.Code)
	}
	return l, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func (l *layout) row(line int, record []string) normalizer.RawRow {
	row := normalizer.RawRow{
		Line:     line,
		Code:     cell(record, l.code),
		Status:   cell(record, l.status),
		MeasureA: cell(record, l.measureA),
		MeasureB: cell(record, l.measureB),
	}
	for i, name := range l.extra {
		value := cell(record, i)
		if value == "" {
			continue
		}
		if row.Payload == nil {
			row.Payload = make(map[string]string)
		}
		row.Payload[name] = value
	}
	return row
}

func blank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// numberedRecord is one source record with its 1-based source line.
type numberedRecord struct {
	line   int
	fields []string
}

// rowsFromRecords treats the first non-blank record as the header.
func rowsFromRecords(ctx context.Context, next func() (*numberedRecord, error), columns Columns) ([]normalizer.RawRow, error) {
	var (
		l    *layout
		rows []normalizer.RawRow
		read int
	)

	for {
		record, err := next()
		if err != nil {
			return nil, err
		}
		if record == nil {
			break
		}

		read++
		if read%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if blank(record.fields) {
			continue
		}
		if l == nil {
			if l, err = newLayout(record.fields, columns); err != nil {
				return nil, fmt.Errorf("line %d: %w", record.line, err)
			}
			continue
		}
		rows = append(rows, l.row(record.line, record.fields))
	}

	if l == nil {
		return nil, fmt.Errorf("source has no header row")
	}
	return rows, nil
}
