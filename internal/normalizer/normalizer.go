// Package normalizer turns parsed source rows into canonical entities: it strips the
// source marker, translates status text, parses measures and deduplicates by code.
package normalizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cablesync/internal/inventory"
	"cablesync/pkg/cel"
)

const (
	DefaultMarker = "*"

	maxUnmappedSamples = 20
)

// RawRow is one already-tabular source row. Line is the 1-based source line used in messages.
type RawRow struct {
	Line     int
	Code     string
	Status   string
	MeasureA string
	MeasureB string
	Payload  map[string]string
}

type Stats struct {
	RawRows          int      `json:"raw_rows"`
	SkippedEmpty     int      `json:"skipped_empty"`
	Excluded         int      `json:"excluded"`
	Duplicates       int      `json:"duplicates"`
	Flagged          int      `json:"flagged"`
	UnmappedStatuses int      `json:"unmapped_statuses"`
	UnmappedSamples  []string `json:"unmapped_samples,omitempty"`
}

type Result struct {
	Entities []inventory.Entity `json:"-"`
	Stats    Stats              `json:"stats"`
}

type Normalizer struct {
	marker     string
	vocabulary *Vocabulary
	filter     *cel.RowFilter
}

type Option func(*Normalizer)

func WithMarker(marker string) Option {
	return func(n *Normalizer) {
		n.marker = marker
	}
}

func WithVocabulary(v *Vocabulary) Option {
	return func(n *Normalizer) {
		if v != nil {
			n.vocabulary = v
		}
	}
}

// WithRowFilter drops every row the filter matches before deduplication.
func WithRowFilter(f *cel.RowFilter) Option {
	return func(n *Normalizer) {
		n.filter = f
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		marker:     DefaultMarker,
		vocabulary: DefaultVocabulary(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// With returns a copy of the normalizer with extra options applied.
func (n *Normalizer) With(opts ...Option) *Normalizer {
	clone := *n
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

func (n *Normalizer) Vocabulary() *Vocabulary {
	return n.vocabulary
}

// Normalize never fails on row content; the only error source is the row filter.
func (n *Normalizer) Normalize(ctx context.Context, rows []RawRow) (*Result, error) {
	result := &Result{Stats: Stats{RawRows: len(rows)}}
	entities := make([]inventory.Entity, 0, len(rows))
	position := make(map[string]int, len(rows))
	removed := make(map[int]bool)
	unmapped := make(map[string]bool)

	for _, row := range rows {
		code, flagged := n.stripMarker(row.Code)
		if code == "" {
			result.Stats.SkippedEmpty++
			continue
		}

		if n.filter != nil {
			drop, err := n.filter.Matches(ctx, cel.Row{
				Line:       row.Line,
				Code:       code,
				StatusText: strings.TrimSpace(row.Status),
				Flagged:    flagged,
				MeasureA:   strings.TrimSpace(row.MeasureA),
				MeasureB:   strings.TrimSpace(row.MeasureB),
				Payload:    row.Payload,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate row filter on line %d: %w", row.Line, err)
			}
			if drop {
				result.Stats.Excluded++
				continue
			}
		}

		status, ok := n.vocabulary.Translate(row.Status)
		if !ok {
			status = n.vocabulary.Default()
			if text := strings.TrimSpace(row.Status); text != "" {
				result.Stats.UnmappedStatuses++
				unmapped[text] = true
			}
		}

		entity := inventory.Entity{
			Code:            code,
			Status:          status,
			MeasureA:        ParseMeasure(row.MeasureA),
			MeasureB:        ParseMeasure(row.MeasureB),
			FlaggedBySource: flagged,
			Payload:         copyPayload(row.Payload),
		}

		if idx, seen := position[code]; seen {
			removed[idx] = true
			result.Stats.Duplicates++
		}
		position[code] = len(entities)
		entities = append(entities, entity)
	}

	result.Entities = make([]inventory.Entity, 0, len(position))
	for idx, entity := range entities {
		if removed[idx] {
			continue
		}
		if entity.FlaggedBySource {
			result.Stats.Flagged++
		}
		result.Entities = append(result.Entities, entity)
	}

	result.Stats.UnmappedSamples = samples(unmapped)
	return result, nil
}

func (n *Normalizer) stripMarker(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if n.marker == "" {
		return code, false
	}

	flagged := false
	for strings.HasSuffix(code, n.marker) {
		code = strings.TrimSpace(strings.TrimSuffix(code, n.marker))
		flagged = true
	}
	return code, flagged
}

func copyPayload(payload map[string]string) map[string]string {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func samples(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for text := range set {
		out = append(out, text)
	}
	sort.Strings(out)
	if len(out) > maxUnmappedSamples {
		out = out[:maxUnmappedSamples]
	}
	return out
}
