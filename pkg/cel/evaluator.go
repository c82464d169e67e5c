// Package cel compiles the row exclusion expressions of the normalizer.
package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// Row is the view of one raw source row exposed to expressions.
type Row struct {
	Line       int
	Code       string
	StatusText string
	Flagged    bool
	MeasureA   string
	MeasureB   string
	Payload    map[string]string
}

func (r Row) activation() map[string]interface{} {
	payload := r.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	return map[string]interface{}{
		"line":        int64(r.Line),
		"code":        r.Code,
		"status_text": r.StatusText,
		"flagged":     r.Flagged,
		"measure_a":   r.MeasureA,
		"measure_b":   r.MeasureB,
		"payload":     payload,
	}
}

// Evaluator owns the CEL environment. ext.Strings adds lowerAscii, trim and
// friends, which cable lists typed by hand need.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("line", cel.IntType),
		cel.Variable("code", cel.StringType),
		cel.Variable("status_text", cel.StringType),
		cel.Variable("flagged", cel.BoolType),
		cel.Variable("measure_a", cel.StringType),
		cel.Variable("measure_b", cel.StringType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func (e *Evaluator) compileBool(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}
	return ast, nil
}

// ValidateFilterExpression type-checks expression without building a program.
func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.compileBool(expression)
	return err
}

// RowFilter is a compiled boolean expression evaluated once per row.
type RowFilter struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) CompileRowFilter(expression string) (*RowFilter, error) {
	ast, err := e.compileBool(expression)
	if err != nil {
		return nil, err
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return &RowFilter{expression: expression, program: program}, nil
}

func (f *RowFilter) Expression() string {
	return f.expression
}

func (f *RowFilter) Matches(ctx context.Context, row Row) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, row.activation())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", f.expression, err)
	}
	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, not bool", f.expression, result.Value())
	}
	return matched, nil
}
