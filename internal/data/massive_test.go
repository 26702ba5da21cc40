package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/massive-com/client-go/v2/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/pricing"
)

func contract(ticker, contractType string, strike float64, expiry string, bid, ask, underlying float64) models.OptionContractSnapshot {
	var s models.OptionContractSnapshot
	s.Details.Ticker = ticker
	s.Details.ContractType = contractType
	s.Details.StrikePrice = strike
	s.Details.ExpirationDate = models.Date(day(expiry))
	s.LastQuote.Bid = bid
	s.LastQuote.Ask = ask
	s.UnderlyingAsset.Price = underlying
	return s
}

func fakeChain() []models.OptionContractSnapshot {
	return []models.OptionContractSnapshot{
		contract("O:TSLA260116C00300000", "call", 300, "2026-01-16", 20, 21, 0),
		contract("O:TSLA260123C00300000", "call", 300, "2026-01-23", 22, 23, 0),
		contract("O:TSLA260220P00300000", "put", 300, "2026-02-20", 9, 9.5, 415.25),
		contract("O:TSLA260320C00300000", "call", 300, "2026-03-20", 30, 31, 415.25),
		contract("O:TSLA260417C00300000", "call", 300, "2026-04-17", 35, 36, 415.25),
		contract("O:TSLA260417X00300000", "other", 300, "2026-04-17", 1, 2, 415.25),
	}
}

func newFakeMassive(t *testing.T, opts MassiveOptions, calls *int) *massiveDataProvider {
	t.Helper()
	p := newMassiveDataProvider(func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error) {
		*calls++
		assert.Equal(t, "TSLA", underlying)
		return fakeChain(), nil
	}, opts)
	p.now = func() time.Time { return time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC) }
	return p
}

func TestMassiveChainKeepsMonthlyExpiries(t *testing.T) {
	calls := 0
	p := newFakeMassive(t, MassiveOptions{Months: 3, Rate: DefaultRate}, &calls)

	quotes, err := p.Chain(context.Background(), "TSLA")

	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, day("2026-01-16"), quotes[0].Expiration)
	assert.Equal(t, day("2026-02-20"), quotes[1].Expiration)
	assert.Equal(t, day("2026-03-20"), quotes[2].Expiration)

	put := quotes[1]
	assert.Equal(t, "O:TSLA260220P00300000", put.ContractSymbol)
	assert.Equal(t, pricing.Put, put.Type)
	assert.Equal(t, 9.0, put.Bid)
	assert.Equal(t, 9.5, put.Ask)
	assert.Equal(t, day("2026-01-05"), put.DataDate)
}

func TestMassiveChainAllExpiries(t *testing.T) {
	calls := 0
	p := newFakeMassive(t, MassiveOptions{}, &calls)

	quotes, err := p.Chain(context.Background(), "TSLA")

	require.NoError(t, err)
	assert.Len(t, quotes, 5, "unknown contract types are skipped")
}

func TestMassiveSpotsReuseSnapshot(t *testing.T) {
	calls := 0
	p := newFakeMassive(t, MassiveOptions{Rate: 0.04}, &calls)
	ctx := context.Background()

	_, err := p.Chain(ctx, "TSLA")
	require.NoError(t, err)
	spots, err := p.Spots(ctx, "TSLA")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, spots, 1)
	assert.Equal(t, Spot{Underlying: "TSLA", Date: day("2026-01-05"), Price: 415.25, Rate: 0.04}, spots[0])
}

func TestMassiveErrors(t *testing.T) {
	boom := errors.New("rate limited")
	p := newMassiveDataProvider(func(context.Context, string) ([]models.OptionContractSnapshot, error) {
		return nil, boom
	}, MassiveOptions{})

	_, err := p.Chain(context.Background(), "TSLA")
	assert.ErrorIs(t, err, boom)

	empty := newMassiveDataProvider(func(context.Context, string) ([]models.OptionContractSnapshot, error) {
		return nil, nil
	}, MassiveOptions{})
	_, err = empty.Spots(context.Background(), "TSLA")
	assert.Error(t, err)
}

func TestMassiveRequestLimit(t *testing.T) {
	var calls int
	p := newMassiveDataProvider(func(context.Context, string) ([]models.OptionContractSnapshot, error) {
		calls++
		return fakeChain(), nil
	}, MassiveOptions{RequestsPerMinute: 1})
	require.NotNil(t, p.limiter)

	_, err := p.Chain(context.Background(), "TSLA")
	require.NoError(t, err)

	// the next token is a minute away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Chain(ctx, "AAPL")
	assert.ErrorContains(t, err, "massive rate limit")
	assert.Equal(t, 1, calls)

	// cached snapshots skip the limiter
	_, err = p.Spots(ctx, "TSLA")
	assert.NoError(t, err)
}
