package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/option-iv/internal/rootfind"
)

// Method selects the root finder used to invert Black-Scholes.
type Method string

const (
	Bisection Method = "bisection"
	Newton    Method = "newton"
)

// ParseMethod accepts "bisection" or "newton", in any case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Bisection, Newton:
		return m, nil
	}
	return "", fmt.Errorf("unknown implied volatility method %q", s)
}

const (
	// DefaultLowerVol and DefaultUpperVol bracket 0.0001% to 2000% annualised
	// volatility, wide enough for any real quote.
	DefaultLowerVol = 1e-6
	DefaultUpperVol = 20.0

	// DefaultInitialGuess seeds Newton at 100% volatility, away from the
	// sigma -> 0 singularity in d1/d2.
	DefaultInitialGuess = 1.0
)

type ivSettings struct {
	lower, upper float64
	guess        float64
	solver       []rootfind.Option
}

// IVOption overrides an implied volatility default.
type IVOption func(*ivSettings)

// WithBracket sets the bisection search interval.
func WithBracket(lower, upper float64) IVOption {
	return func(s *ivSettings) {
		s.lower, s.upper = lower, upper
	}
}

// WithInitialGuess sets Newton's starting volatility.
func WithInitialGuess(sigma float64) IVOption {
	return func(s *ivSettings) {
		s.guess = sigma
	}
}

// WithSolverOptions passes tolerance and iteration settings to the root finder.
func WithSolverOptions(opts ...rootfind.Option) IVOption {
	return func(s *ivSettings) {
		s.solver = append(s.solver, opts...)
	}
}

func newIVSettings(opts []IVOption) ivSettings {
	s := ivSettings{
		lower: DefaultLowerVol,
		upper: DefaultUpperVol,
		guess: DefaultInitialGuess,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// objective is price(sigma) - marketPrice for one option.
func objective(optType OptionType, S, K, t, r, marketPrice float64) rootfind.Func {
	return func(sigma float64) float64 {
		return BlackScholesPrice(optType, S, K, t, r, sigma) - marketPrice
	}
}

// ImpliedVolBisection solves price(sigma) = marketPrice by bisection over
// the configured bracket. A price that is not attainable inside the bracket
// (for example below intrinsic value, or above the spot for a call) yields a
// NotBracketed result with a NaN root.
func ImpliedVolBisection(optType OptionType, S, K, t, r, marketPrice float64, opts ...IVOption) rootfind.Result {
	s := newIVSettings(opts)
	return rootfind.Bisection(objective(optType, S, K, t, r, marketPrice), s.lower, s.upper, s.solver...)
}

// ImpliedVolNewton solves price(sigma) = marketPrice by Newton iteration with
// vega as the derivative. No fallback to bisection is attempted when it fails.
func ImpliedVolNewton(optType OptionType, S, K, t, r, marketPrice float64, opts ...IVOption) rootfind.Result {
	s := newIVSettings(opts)
	vega := func(sigma float64) float64 {
		return Vega(S, K, t, r, sigma)
	}
	return rootfind.Newton(objective(optType, S, K, t, r, marketPrice), vega, s.guess, s.solver...)
}

// ImpliedVol dispatches on method. The error is only for an unknown method;
// numerical failure is reported through the Result.
func ImpliedVol(method Method, optType OptionType, S, K, t, r, marketPrice float64, opts ...IVOption) (rootfind.Result, error) {
	switch method {
	case Bisection:
		return ImpliedVolBisection(optType, S, K, t, r, marketPrice, opts...), nil
	case Newton:
		return ImpliedVolNewton(optType, S, K, t, r, marketPrice, opts...), nil
	}
	return rootfind.Result{Root: math.NaN()}, fmt.Errorf("unknown implied volatility method %q", method)
}
