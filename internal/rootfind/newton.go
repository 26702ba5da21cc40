package rootfind

import (
	"math"

	"github.com/contactkeval/option-iv/internal/logger"
)

// Newton refines x0 with x <- x - f(x)/df(x) until |f(x)| < tolerance, for at
// most the configured number of iterations (default 100). The returned
// iteration count is 1-based: converging on the initial guess reports 1.
//
// A zero derivative is not guarded against. The step becomes ±Inf or NaN,
// which never satisfies the tolerance check, so such a solve ends with
// MaxIterations and a NaN root.
func Newton(f, df Func, x0 float64, opts ...Option) Result {
	s := newSettings(opts)

	x := x0
	for i := 0; i < s.maxIterations; i++ {
		fx := f(x)

		if math.Abs(fx) < s.tolerance {
			return Result{Root: x, Iterations: i + 1, Status: Converged}
		}

		dfx := df(x)
		logger.Tracef("newton iter=%d x=%g f(x)=%g f'(x)=%g", i+1, x, fx, dfx)

		x -= fx / dfx
	}

	logger.Debugf("newton: no convergence from x0=%g after %d iterations (last x=%g)", x0, s.maxIterations, x)
	return failure(MaxIterations, s.maxIterations)
}
