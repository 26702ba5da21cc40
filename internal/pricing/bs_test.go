package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference case: S=100, K=100, t=1, r=5%, sigma=20%.
const (
	refSpot   = 100.0
	refStrike = 100.0
	refExpiry = 1.0
	refRate   = 0.05
	refVol    = 0.2
)

func TestBlackScholesReferencePrices(t *testing.T) {
	call := BlackScholesCall(refSpot, refStrike, refExpiry, refRate, refVol)
	put := BlackScholesPut(refSpot, refStrike, refExpiry, refRate, refVol)

	assert.InDelta(t, 10.450583572185565, call, 1e-9)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)

	assert.Equal(t, call, BlackScholesPrice(Call, refSpot, refStrike, refExpiry, refRate, refVol))
	assert.Equal(t, put, BlackScholesPrice(Put, refSpot, refStrike, refExpiry, refRate, refVol))
}

func TestD1D2(t *testing.T) {
	d1, d2 := D1D2(refSpot, refStrike, refExpiry, refRate, refVol)

	// (0 + (0.05 + 0.02) * 1) / 0.2
	assert.InDelta(t, 0.35, d1, 1e-12)
	assert.InDelta(t, 0.15, d2, 1e-12)
}

func TestPutCallParity(t *testing.T) {
	cases := []struct {
		S, K, t, r, sigma float64
	}{
		{100, 100, 1, 0.05, 0.2},
		{100, 80, 0.25, 0.01, 0.35},
		{50, 75, 2, -0.005, 0.6},
		{4200, 4000, 0.1, 0.0364, 0.15},
		{18, 20, 0.05, 0.0364, 1.2},
	}
	for _, c := range cases {
		call := BlackScholesCall(c.S, c.K, c.t, c.r, c.sigma)
		put := BlackScholesPut(c.S, c.K, c.t, c.r, c.sigma)

		lhs := call - put
		rhs := c.S - c.K*math.Exp(-c.r*c.t)

		assert.InDelta(t, rhs, lhs, 1e-9*c.S, "parity violated for %+v", c)
	}
}

func TestGreeks(t *testing.T) {
	dc := DeltaCall(refSpot, refStrike, refExpiry, refRate, refVol)
	dp := DeltaPut(refSpot, refStrike, refExpiry, refRate, refVol)

	assert.InDelta(t, 0.6368306511756191, dc, 1e-9)
	assert.InDelta(t, -0.3631693488243809, dp, 1e-9)
	assert.InDelta(t, 1.0, dc-dp, 1e-12)

	assert.InDelta(t, 37.52403469169379, Vega(refSpot, refStrike, refExpiry, refRate, refVol), 1e-9)
	assert.InDelta(t, 0.018762017345846895, Gamma(refSpot, refStrike, refExpiry, refRate, refVol), 1e-12)
}

func TestDeltaDifferenceIsOneEverywhere(t *testing.T) {
	for _, K := range []float64{60, 90, 100, 110, 160} {
		for _, sigma := range []float64{0.05, 0.3, 1.5} {
			dc := Delta(Call, 100, K, 0.5, 0.02, sigma)
			dp := Delta(Put, 100, K, 0.5, 0.02, sigma)
			assert.InDelta(t, 1.0, dc-dp, 1e-12, "K=%v sigma=%v", K, sigma)
		}
	}
}

func TestVegaMatchesPriceSlope(t *testing.T) {
	const h = 1e-5
	for _, optType := range []OptionType{Call, Put} {
		up := BlackScholesPrice(optType, 100, 105, 0.75, 0.03, 0.25+h)
		down := BlackScholesPrice(optType, 100, 105, 0.75, 0.03, 0.25-h)

		assert.InDelta(t, (up-down)/(2*h), Vega(100, 105, 0.75, 0.03, 0.25), 1e-5, string(optType))
	}
}

func TestComputeGreeks(t *testing.T) {
	g := ComputeGreeks(Put, refSpot, refStrike, refExpiry, refRate, refVol)

	assert.InDelta(t, 5.573526022256971, g.Price, 1e-9)
	assert.InDelta(t, -0.3631693488243809, g.Delta, 1e-9)
	assert.InDelta(t, 0.018762017345846895, g.Gamma, 1e-12)
	assert.InDelta(t, 37.52403469169379, g.Vega, 1e-9)
}

func TestPreconditionViolationsPropagate(t *testing.T) {
	// sigma = 0 and t = 0 are not defended against.
	assert.True(t, math.IsNaN(BlackScholesCall(100, 100, 0, 0.05, 0.2)))
	assert.True(t, math.IsNaN(Gamma(100, 100, 1, 0.05, 0)) || math.IsInf(Gamma(100, 100, 1, 0.05, 0), 0))
}

func TestParseOptionType(t *testing.T) {
	for in, want := range map[string]OptionType{"call": Call, "C": Call, " Put ": Put, "p": Put} {
		got, err := ParseOptionType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseOptionType("straddle")
	assert.Error(t, err)
}
