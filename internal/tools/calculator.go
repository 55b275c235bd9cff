package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"go/parser"
	"go/token"

	"github.com/invopop/jsonschema"
)

// CalculatorParams is the argument shape for the calculator tool.
type CalculatorParams struct {
	Expression string `json:"expression" jsonschema:"required,description=An arithmetic expression, e.g. '21*2' or '(3+4)/2'"`
}

// CalculatorTool evaluates a pure arithmetic expression. Grounded on the
// reference math toolkit's role in the source repository — reimplemented
// here as a constant-expression evaluator over Go's own expression grammar
// rather than a translated library, since the task needs only arithmetic,
// not the full scientific toolkit.
type CalculatorTool struct{}

func (CalculatorTool) Name() string        { return "calculator" }
func (CalculatorTool) Description() string { return "Evaluate an arithmetic expression and return the numeric result." }
func (CalculatorTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&CalculatorParams{})
}

func (CalculatorTool) Invoke(_ context.Context, argumentsJSON string) (Result, error) {
	var params CalculatorParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	fset := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fset, "", params.Expression, 0)
	if err != nil {
		return Result{Error: fmt.Sprintf("invalid expression: %v", err)}, nil
	}

	value, err := evalConstExpr(expr)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	return Result{Output: fmt.Sprintf("%v", value)}, nil
}
