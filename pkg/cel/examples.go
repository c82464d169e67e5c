package cel

// RowFilterExamples are exclusion expressions commonly used against cable lists.
var RowFilterExamples = map[string]string{
	"drop_spares":         `code.startsWith("SP-")`,
	"drop_status":         `status_text.lowerAscii() == "anulado"`,
	"drop_flagged":        `flagged`,
	"drop_header_repeats": `code == "CODE" || code == "CODIGO"`,
	"drop_by_payload":     `"area" in payload && payload["area"] == "TEMP"`,
	"drop_empty_lengths":  `measure_a == "" && measure_b == ""`,
	"combined":            `code.startsWith("X") && !flagged`,
}
