package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateFilterExpression_Table(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    string
		wantErr string
	}{
		{name: "code equality", expr: `code == "C-1"`},
		{name: "payload lookup", expr: `payload["area"] == "TEMP"`},
		{name: "string extension", expr: `status_text.trim().lowerAscii() == "void"`},
		{name: "syntax error", expr: `invalid syntax here!!!`, wantErr: "invalid expression"},
		{name: "undeclared variable", expr: `cable == "C-1"`, wantErr: "undeclared reference"},
		{name: "not a bool", expr: `measure_a`, wantErr: "must return bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	assert.NoError(t, eval.ValidateFilterExpression(`flagged && code.startsWith("X")`))
	assert.Error(t, eval.ValidateFilterExpression(`code`))
	assert.Error(t, eval.ValidateFilterExpression(`line + 1`))
}

func TestRowFilterExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range RowFilterExamples {
		t.Run(name, func(t *testing.T) {
			_, err := eval.CompileRowFilter(expr)
			assert.NoError(t, err)
		})
	}
}

func TestRowFilter_Matches(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		row  Row
		want bool
	}{
		{
			name: "prefix match",
			expr: RowFilterExamples["drop_spares"],
			row:  Row{Code: "SP-10"},
			want: true,
		},
		{
			name: "prefix miss",
			expr: RowFilterExamples["drop_spares"],
			row:  Row{Code: "C-10"},
			want: false,
		},
		{
			name: "status text case folded",
			expr: RowFilterExamples["drop_status"],
			row:  Row{Code: "C-1", StatusText: "ANULADO"},
			want: true,
		},
		{
			name: "missing payload key",
			expr: RowFilterExamples["drop_by_payload"],
			row:  Row{Code: "C-1"},
			want: false,
		},
		{
			name: "payload key present",
			expr: RowFilterExamples["drop_by_payload"],
			row:  Row{Code: "C-1", Payload: map[string]string{"area": "TEMP"}},
			want: true,
		},
		{
			name: "line number",
			expr: `line < 3`,
			row:  Row{Line: 2, Code: "C-1"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := eval.CompileRowFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, filter.Expression())

			got, err := filter.Matches(context.Background(), tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileRowFilter_RejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileRowFilter(`code + "x"`)
	assert.Error(t, err)
}
