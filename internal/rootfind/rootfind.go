// Package rootfind implements scalar root search for arbitrary objective
// functions: bisection over a sign-changing bracket and Newton iteration
// with an analytic derivative.
//
// Solvers never panic or return errors for numerical failure. They return a
// Result whose Status says what happened; a failed Result carries NaN as its
// root so callers that only look at the number still see "no solution".
// Both solvers are pure functions of their inputs and safe to call from
// many goroutines with independent closures.
package rootfind

import (
	"errors"
	"math"
)

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
)

var (
	ErrNotBracketed  = errors.New("root not bracketed")
	ErrNoConvergence = errors.New("did not converge")
)

// Func is a scalar function of one variable: an objective or its derivative.
type Func func(x float64) float64

// Status describes how a solve ended. The zero value is not a success.
type Status int

const (
	Converged Status = iota + 1
	NotBracketed
	MaxIterations
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case NotBracketed:
		return "not_bracketed"
	case MaxIterations:
		return "max_iterations"
	}
	return "unknown"
}

// Result is the outcome of a solve.
type Result struct {
	Root       float64 // NaN unless Status == Converged
	Iterations int
	Status     Status
}

// OK reports whether the solve converged.
func (r Result) OK() bool {
	return r.Status == Converged
}

// Err maps a failed Result to ErrNotBracketed or ErrNoConvergence, and a
// converged one to nil.
func (r Result) Err() error {
	switch r.Status {
	case Converged:
		return nil
	case NotBracketed:
		return ErrNotBracketed
	default:
		return ErrNoConvergence
	}
}

func failure(status Status, iterations int) Result {
	return Result{Root: math.NaN(), Iterations: iterations, Status: status}
}

type settings struct {
	tolerance     float64
	maxIterations int
}

// Option overrides a solver default.
type Option func(*settings)

// WithTolerance sets the convergence tolerance: bracket width for
// bisection, |f(x)| for Newton. Non-positive values are ignored.
func WithTolerance(eps float64) Option {
	return func(s *settings) {
		if eps > 0 {
			s.tolerance = eps
		}
	}
}

// WithMaxIterations sets Newton's iteration budget. Bisection has no cap
// and ignores it. Non-positive values are ignored.
func WithMaxIterations(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
