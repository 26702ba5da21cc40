package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/pricing"
)

func synthOptions() SyntheticOptions {
	return SyntheticOptions{
		Spot:       100,
		Vol:        0.3,
		Rate:       0.02,
		StrikeStep: 5,
		Strikes:    2,
		Months:     2,
		AsOf:       day("2026-01-20"),
	}
}

func TestSyntheticChainLayout(t *testing.T) {
	p := NewSyntheticProvider(synthOptions())

	quotes, err := p.Chain(context.Background(), "demo")

	require.NoError(t, err)
	// 2 expiries x 5 strikes x call/put; January's third Friday is already past.
	require.Len(t, quotes, 20)
	assert.Equal(t, day("2026-02-20"), quotes[0].Expiration)
	assert.Equal(t, day("2026-03-20"), quotes[len(quotes)-1].Expiration)
	assert.Equal(t, 90.0, quotes[0].Strike)
	assert.Equal(t, 110.0, quotes[len(quotes)-1].Strike)
	assert.Equal(t, "DEMO", quotes[0].Underlying)
	assert.Equal(t, "O:DEMO260220C00090000", quotes[0].ContractSymbol)
}

func TestSyntheticMidIsModelPrice(t *testing.T) {
	opts := synthOptions()
	opts.HalfSpread = 0.1
	p := NewSyntheticProvider(opts)

	quotes, err := p.Chain(context.Background(), "DEMO")
	require.NoError(t, err)
	spots, err := p.Spots(context.Background(), "DEMO")
	require.NoError(t, err)
	require.Len(t, spots, 1)

	for _, q := range quotes {
		mq := q.MarketQuote(spots[0])
		want := pricing.BlackScholesPrice(q.Type, 100, q.Strike, mq.Expiry, 0.02, 0.3)
		if want > opts.HalfSpread {
			assert.InDelta(t, want, q.Mid(), 1e-9, q.ContractSymbol)
		}
		assert.GreaterOrEqual(t, q.Bid, 0.0)
	}
}

func TestSyntheticNoiseIsSeeded(t *testing.T) {
	opts := synthOptions()
	opts.Noise = 0.05
	opts.Seed = 42

	a, err := NewSyntheticProvider(opts).Chain(context.Background(), "DEMO")
	require.NoError(t, err)
	b, err := NewSyntheticProvider(opts).Chain(context.Background(), "DEMO")
	require.NoError(t, err)

	assert.Equal(t, a, b)

	clean, err := NewSyntheticProvider(synthOptions()).Chain(context.Background(), "DEMO")
	require.NoError(t, err)
	assert.NotEqual(t, clean, a)
}
