// Package source reads tabular import sources (CSV and XLSX) into raw rows and
// resolves storage locators to source bytes.
package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"cablesync/internal/config"
	"cablesync/internal/constants"
	"cablesync/internal/normalizer"
)

// cancelCheckEvery bounds how many rows are read between context checks.
const cancelCheckEvery = 1024

var zipMagic = []byte("PK\x03\x04")

type Parser interface {
	Parse(ctx context.Context, data []byte) ([]normalizer.RawRow, error)
}

// Registry picks a parser by format name.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry(cfg config.NormalizerConfig) *Registry {
	columns := ColumnsFromConfig(cfg.Columns)
	return &Registry{
		parsers: map[string]Parser{
			constants.FormatCSV:  NewCSVParser(columns),
			constants.FormatXLSX: NewXLSXParser(columns, cfg.Sheet),
		},
	}
}

func (r *Registry) Register(format string, parser Parser) {
	r.parsers[strings.ToLower(format)] = parser
}

// Detect recognises XLSX workbooks by their zip signature; anything else is read as CSV.
func (r *Registry) Detect(data []byte) string {
	if bytes.HasPrefix(data, zipMagic) {
		return constants.FormatXLSX
	}
	return constants.FormatCSV
}

func (r *Registry) Parse(ctx context.Context, format string, data []byte) ([]normalizer.RawRow, error) {
	parser, ok := r.parsers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported source format %q", format)
	}
	return parser.Parse(ctx, data)
}
