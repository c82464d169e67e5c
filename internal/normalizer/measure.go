package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"cablesync/internal/inventory"
)

// Measures outside these bounds are treated as unparseable. They keep exponent
// notation such as "1e200000" from expanding into a value NUMERIC cannot store.
const (
	maxIntegerDigits  = 18
	maxFractionDigits = 12
)

var thousandsSpaces = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "")

// ParseMeasure accepts either '.' or ',' as the decimal separator. When both appear
// the last one is the decimal separator; a separator repeated more than once is a
// thousands separator. Empty, unparseable or out-of-range text is null, never zero.
func ParseMeasure(text string) inventory.Measure {
	text = thousandsSpaces.Replace(strings.TrimSpace(text))
	if text == "" {
		return inventory.NullMeasure()
	}

	dots := strings.Count(text, ".")
	commas := strings.Count(text, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(text, ",") > strings.LastIndex(text, ".") {
			text = strings.ReplaceAll(text, ".", "")
			text = strings.Replace(text, ",", ".", 1)
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	case commas > 1:
		text = strings.ReplaceAll(text, ",", "")
	case commas == 1:
		text = strings.Replace(text, ",", ".", 1)
	case dots > 1:
		text = strings.ReplaceAll(text, ".", "")
	}

	if strings.Count(text, ".") > 1 {
		return inventory.NullMeasure()
	}

	value, err := decimal.NewFromString(text)
	if err != nil || !inRange(value) {
		return inventory.NullMeasure()
	}
	return inventory.MeasureOf(value)
}

// inRange inspects the coefficient and exponent only, so a huge exponent is
// rejected without being expanded.
func inRange(value decimal.Decimal) bool {
	exp := int64(value.Exponent())
	if -exp > maxFractionDigits {
		return false
	}
	return value.IsZero() || int64(value.NumDigits())+exp <= maxIntegerDigits
}
