package tools

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCalculatorToolInvoke(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantOutput string
		wantErr    string
	}{
		{"addition", "2+2", "4", ""},
		{"operator precedence", "2+3*4", "14", ""},
		{"parentheses override precedence", "(2+3)*4", "20", ""},
		{"division", "21/2", "10.5", ""},
		{"unary minus", "-5+10", "5", ""},
		{"division by zero", "1/0", "", "division by zero"},
		{"unsupported operand rejected", "2+*3", "", "unsupported expression"},
	}

	tool := CalculatorTool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := json.Marshal(CalculatorParams{Expression: tt.expression})
			if err != nil {
				t.Fatalf("marshaling args: %v", err)
			}

			result, err := tool.Invoke(context.Background(), string(args))
			if err != nil {
				t.Fatalf("Invoke returned error: %v", err)
			}

			if tt.wantErr != "" {
				if result.Error == "" {
					t.Fatalf("Result.Error = %q, want non-empty containing %q", result.Error, tt.wantErr)
				}
				return
			}
			if result.Error != "" {
				t.Fatalf("Result.Error = %q, want empty", result.Error)
			}
			if result.Output != tt.wantOutput {
				t.Errorf("Result.Output = %q, want %q", result.Output, tt.wantOutput)
			}
		})
	}
}

func TestCalculatorToolInvalidArguments(t *testing.T) {
	tool := CalculatorTool{}
	result, err := tool.Invoke(context.Background(), "{not json")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result.Error == "" {
		t.Error("expected Result.Error for malformed JSON arguments")
	}
}
