package pricing

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/rootfind"
)

func TestImpliedVolReferenceQuotes(t *testing.T) {
	cases := []struct {
		optType OptionType
		price   float64
	}{
		{Call, 10.45},
		{Put, 5.57},
	}
	for _, c := range cases {
		for _, method := range []Method{Bisection, Newton} {
			t.Run(fmt.Sprintf("%s/%s", c.optType, method), func(t *testing.T) {
				res, err := ImpliedVol(method, c.optType, refSpot, refStrike, refExpiry, refRate, c.price)

				require.NoError(t, err)
				require.True(t, res.OK(), "status %s", res.Status)
				assert.InDelta(t, 0.2, res.Root, 1e-3)
			})
		}
	}
}

func TestImpliedVolBisectionIterationCount(t *testing.T) {
	res := ImpliedVolBisection(Call, refSpot, refStrike, refExpiry, refRate, 10.45)

	require.True(t, res.OK())
	assert.Equal(t, 25, res.Iterations)
}

func TestImpliedVolNewtonIsFast(t *testing.T) {
	res := ImpliedVolNewton(Put, refSpot, refStrike, refExpiry, refRate, 5.57)

	require.True(t, res.OK())
	assert.LessOrEqual(t, res.Iterations, 10)
}

func TestImpliedVolRoundTrip(t *testing.T) {
	for _, optType := range []OptionType{Call, Put} {
		for _, K := range []float64{90, 100, 110} {
			for _, expiry := range []float64{0.25, 0.5, 1} {
				for _, r := range []float64{0, 0.05} {
					for _, sigma := range []float64{0.2, 0.35, 0.5, 1, 2, 5} {
						price := BlackScholesPrice(optType, 100, K, expiry, r, sigma)

						for _, method := range []Method{Bisection, Newton} {
							res, err := ImpliedVol(method, optType, 100, K, expiry, r, price)
							require.NoError(t, err)
							require.True(t, res.OK(), "%s %s K=%v t=%v r=%v sigma=%v", method, optType, K, expiry, r, sigma)
							assert.InDelta(t, sigma, res.Root, 1e-4, "%s %s K=%v t=%v r=%v", method, optType, K, expiry, r)
						}
					}
				}
			}
		}
	}
}

func TestImpliedVolBisectionLowVolRoundTrip(t *testing.T) {
	// Far from the money at low volatility Newton's seed of 1 overshoots;
	// bisection still recovers the volatility.
	price := BlackScholesCall(100, 80, 2, 0, 0.1)

	res := ImpliedVolBisection(Call, 100, 80, 2, 0, price)

	require.True(t, res.OK())
	assert.InDelta(t, 0.1, res.Root, 1e-4)
}

func TestImpliedVolUnbracketedQuote(t *testing.T) {
	// Above the spot and below the discounted intrinsic value a call price
	// cannot be reached for any volatility in [1e-6, 20].
	for _, price := range []float64{150, 1.0} {
		res := ImpliedVolBisection(Call, refSpot, refStrike, refExpiry, refRate, price)

		assert.False(t, res.OK(), "price %v", price)
		assert.Equal(t, rootfind.NotBracketed, res.Status)
		assert.True(t, math.IsNaN(res.Root))
	}
}

func TestImpliedVolNewtonDegenerateQuote(t *testing.T) {
	// The objective stays negative, so Newton keeps raising sigma until vega
	// underflows to zero and the iterate becomes NaN. It must still stop
	// within the default budget.
	res := ImpliedVolNewton(Call, refSpot, refStrike, refExpiry, refRate, 150)

	assert.False(t, res.OK())
	assert.Equal(t, rootfind.MaxIterations, res.Status)
	assert.Equal(t, rootfind.DefaultMaxIterations, res.Iterations)
	assert.True(t, math.IsNaN(res.Root))
}

func TestImpliedVolOptions(t *testing.T) {
	// A bracket that excludes 20% vol cannot find it.
	res := ImpliedVolBisection(Call, refSpot, refStrike, refExpiry, refRate, 10.45, WithBracket(0.5, 3))
	assert.Equal(t, rootfind.NotBracketed, res.Status)

	// A tighter tolerance takes more passes and lands closer.
	loose := ImpliedVolBisection(Call, refSpot, refStrike, refExpiry, refRate, 10.45,
		WithSolverOptions(rootfind.WithTolerance(1e-3)))
	tight := ImpliedVolBisection(Call, refSpot, refStrike, refExpiry, refRate, 10.45,
		WithSolverOptions(rootfind.WithTolerance(1e-10)))
	require.True(t, loose.OK())
	require.True(t, tight.OK())
	assert.Less(t, loose.Iterations, tight.Iterations)

	// Seeding Newton at the answer converges on the first evaluation.
	seeded := ImpliedVolNewton(Call, refSpot, refStrike, refExpiry, refRate,
		BlackScholesCall(refSpot, refStrike, refExpiry, refRate, 0.3), WithInitialGuess(0.3))
	require.True(t, seeded.OK())
	assert.Equal(t, 1, seeded.Iterations)

	capped := ImpliedVolNewton(Call, refSpot, refStrike, refExpiry, refRate, 10.45,
		WithSolverOptions(rootfind.WithMaxIterations(1)))
	assert.Equal(t, rootfind.MaxIterations, capped.Status)
}

func TestImpliedVolUnknownMethod(t *testing.T) {
	res, err := ImpliedVol("secant", Call, refSpot, refStrike, refExpiry, refRate, 10.45)

	assert.Error(t, err)
	assert.False(t, res.OK())
	assert.True(t, math.IsNaN(res.Root))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Newton")
	require.NoError(t, err)
	assert.Equal(t, Newton, m)

	m, err = ParseMethod("BISECTION")
	require.NoError(t, err)
	assert.Equal(t, Bisection, m)

	_, err = ParseMethod("brent")
	assert.Error(t, err)
}
