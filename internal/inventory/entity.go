package inventory

import (
	"github.com/shopspring/decimal"
)

// Measure is a nullable numeric attribute. A null measure is never equal to zero.
type Measure = decimal.NullDecimal

// MeasureField names one of the two independent measures of an entity.
type MeasureField string

const (
	// MeasureDesign is the planned length of the item.
	MeasureDesign MeasureField = "measure_a"
	// MeasureLaid is the completed length; it only grows while work progresses.
	MeasureLaid MeasureField = "measure_b"
)

func AllMeasureFields() []MeasureField {
	return []MeasureField{MeasureDesign, MeasureLaid}
}

// TracksProgress reports whether a decrease of the field is a regression.
func (f MeasureField) TracksProgress() bool {
	return f == MeasureLaid
}

func NullMeasure() Measure {
	return decimal.NullDecimal{}
}

func MeasureOf(v decimal.Decimal) Measure {
	return decimal.NullDecimal{Decimal: v, Valid: true}
}

// MeasureEqual treats null == null, null != any number, and compares numbers exactly.
func MeasureEqual(a, b Measure) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

// FormatMeasure renders a measure for the event log; null renders as "".
func FormatMeasure(m Measure) string {
	if !m.Valid {
		return ""
	}
	return m.Decimal.String()
}

// Entity is one canonical tracked item of a snapshot.
type Entity struct {
	Code            string            `json:"code"`
	Status          Status            `json:"status"`
	MeasureA        Measure           `json:"measure_a"`
	MeasureB        Measure           `json:"measure_b"`
	FlaggedBySource bool              `json:"flagged_by_source"`
	Payload         map[string]string `json:"payload,omitempty"`
}

// Measure returns the value of the given field.
func (e Entity) Measure(field MeasureField) Measure {
	if field == MeasureLaid {
		return e.MeasureB
	}
	return e.MeasureA
}

// State is the last-known state of a code in a stored snapshot.
type State struct {
	Status          Status  `json:"status"`
	MeasureA        Measure `json:"measure_a"`
	MeasureB        Measure `json:"measure_b"`
	FlaggedBySource bool    `json:"flagged_by_source"`
}

func (s State) Measure(field MeasureField) Measure {
	if field == MeasureLaid {
		return s.MeasureB
	}
	return s.MeasureA
}
