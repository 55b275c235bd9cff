package tools

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
)

// evalConstExpr evaluates a parsed arithmetic expression AST over float64,
// supporting +, -, *, /, parentheses, and unary minus — enough for the
// calculator tool without pulling in a general expression-evaluation
// dependency.
func evalConstExpr(expr ast.Expr) (float64, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal kind %v", e.Kind)
		}
		return strconv.ParseFloat(e.Value, 64)
	case *ast.ParenExpr:
		return evalConstExpr(e.X)
	case *ast.UnaryExpr:
		v, err := evalConstExpr(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %v", e.Op)
		}
	case *ast.BinaryExpr:
		left, err := evalConstExpr(e.X)
		if err != nil {
			return 0, err
		}
		right, err := evalConstExpr(e.Y)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		default:
			return 0, fmt.Errorf("unsupported operator %v", e.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported expression %T", expr)
	}
}
