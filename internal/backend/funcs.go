package backend

import "math"

// Func selects one of the test integrands compiled into every backend.
type Func int

const (
	FuncSin Func = iota
	FuncCos
	FuncExp
	FuncSquare
)

// Funcs lists the catalog in selector order.
var Funcs = []Func{FuncSin, FuncCos, FuncExp, FuncSquare}

// normalize maps unknown selectors to sin, which is what the kernels do.
func (f Func) normalize() Func {
	if f < FuncSin || f > FuncSquare {
		return FuncSin
	}
	return f
}

// Name returns a short human-readable name of the integrand.
func (f Func) Name() string {
	switch f.normalize() {
	case FuncCos:
		return "cos(x)"
	case FuncExp:
		return "exp(x)"
	case FuncSquare:
		return "x^2"
	default:
		return "sin(x)"
	}
}

// Integral returns the exact integral of the integrand over [a, b].
func (f Func) Integral(a, b float64) float64 {
	return f.antiderivative(b) - f.antiderivative(a)
}

func (f Func) antiderivative(x float64) float64 {
	switch f.normalize() {
	case FuncCos:
		return math.Sin(x)
	case FuncExp:
		return math.Exp(x)
	case FuncSquare:
		return x * x * x / 3
	default:
		return -math.Cos(x)
	}
}
