package loom

import (
	"fmt"
	"strconv"
	"strings"
)

// Arithmetic operator units for quickly assembling demo and test graphs.
// Each factory returns a named unit over float64 so rendered graphs and
// stash entries read well ("add_5", "mul_2").

// Add returns a unit that adds n to its input.
func Add(n float64) *Unit {
	return oper("add", n, func(v float64) float64 { return v + n })
}

// Sub returns a unit that subtracts n from its input.
func Sub(n float64) *Unit {
	return oper("sub", n, func(v float64) float64 { return v - n })
}

// Mul returns a unit that multiplies its input by n.
func Mul(n float64) *Unit {
	return oper("mul", n, func(v float64) float64 { return v * n })
}

// Div returns a unit that divides its input by n.
func Div(n float64) *Unit {
	return oper("div", n, func(v float64) float64 { return v / n })
}

// Sum returns a unit that sums all of its inputs. Useful as a merge node
// collecting consolidated fan-in.
func Sum() *Unit {
	return NewUnit(func(vs ...float64) float64 {
		total := 0.0
		for _, v := range vs {
			total += v
		}
		return total
	}, WithName("sum"))
}

// Identity returns a unit that passes its input through unchanged.
func Identity() *Unit {
	return NewUnit(func(v any) any { return v }, WithName("identity"))
}

func oper(name string, n float64, fn any) *Unit {
	return NewUnit(fn, WithName(fmt.Sprintf("%s_%s", name, formatOperand(n))))
}

func formatOperand(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Op builds an operator unit from a compact "name:operand" spec, e.g.
// "add:5" or "mul:0.5". "sum" and "identity" take no operand.
func Op(spec string) (*Unit, error) {
	name, operand, hasOperand := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)

	switch name {
	case "sum":
		return Sum(), nil
	case "identity", "noop":
		return Identity(), nil
	}

	if !hasOperand {
		return nil, fmt.Errorf("op %q: missing operand", spec)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return nil, fmt.Errorf("op %q: %w", spec, err)
	}

	switch name {
	case "add":
		return Add(n), nil
	case "sub":
		return Sub(n), nil
	case "mul":
		return Mul(n), nil
	case "div":
		return Div(n), nil
	default:
		return nil, fmt.Errorf("op %q: unknown operator %q", spec, name)
	}
}
