package tool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/expr-lang/expr"

	"funcagent/internal/domain"
)

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return "calculator" }
func (t *CalculatorTool) Description() string {
	return "Evaluate a math expression. Supports +, -, *, /, % and parentheses."
}
func (t *CalculatorTool) ParameterDescription() string {
	return "expression (string): the expression to evaluate, e.g. '(2 + 3) * 4'"
}
func (t *CalculatorTool) Terminal() bool { return false }

func (t *CalculatorTool) Execute(_ context.Context, args domain.Args) domain.ToolOutcome {
	expression, err := args.Require("expression")
	if err != nil {
		return domain.Failed("expression must not be empty")
	}
	value, err := Evaluate(expression)
	if err != nil {
		return domain.Failed("calculation failed: " + err.Error())
	}
	return domain.OK(fmt.Sprintf("Result: %s = %s", expression, value))
}

// Evaluate computes a numeric expression and formats the result in its
// shortest exact form.
func Evaluate(expression string) (string, error) {
	program, err := expr.Compile(expression)
	if err != nil {
		return "", err
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return "", err
	}
	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expression did not produce a number (got %T)", out)
	}
}
