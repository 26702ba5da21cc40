package rootfind

import (
	"math"

	"github.com/contactkeval/option-iv/internal/logger"
)

// Bisection finds a root of a continuous f inside [a, b].
//
// f(a) and f(b) must have opposite signs (or one of them be zero); otherwise
// the result is NotBracketed with a NaN root and no iterations. The bracket
// is halved until |a-b| <= tolerance, and the left endpoint of the final
// bracket is returned. There is no iteration cap: the bracket width alone
// bounds the loop at ceil(log2(|b-a|/tolerance)) passes.
func Bisection(f Func, a, b float64, opts ...Option) Result {
	s := newSettings(opts)

	fa := f(a)
	fb := f(b)

	if fa*fb > 0 {
		logger.Debugf("bisection: [%g, %g] does not bracket a root (f(a)=%g f(b)=%g)", a, b, fa, fb)
		return failure(NotBracketed, 0)
	}

	i := 0
	for math.Abs(a-b) > s.tolerance {
		i++
		mid := (a + b) / 2
		fmid := f(mid)

		logger.Tracef("bisection iter=%d a=%g b=%g mid=%g f(mid)=%g", i, a, b, mid, fmid)

		if fmid == 0 {
			a = mid
			break
		}
		if fa*fmid < 0 {
			b = mid
		} else {
			a, fa = mid, fmid
		}
	}

	return Result{Root: a, Iterations: i, Status: Converged}
}
