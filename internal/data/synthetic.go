package data

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-iv/internal/pricing"
)

// SyntheticOptions describes a flat-volatility Black-Scholes chain.
type SyntheticOptions struct {
	Spot       float64
	Vol        float64
	Rate       float64
	StrikeStep float64
	Strikes    int     // strikes on each side of the at-the-money strike
	Months     int     // monthly expiries after AsOf
	HalfSpread float64 // bid/ask distance from the model price
	Noise      float64 // std dev of normal noise added to each mid; 0 disables it
	Seed       uint64
	AsOf       time.Time
}

// DefaultSyntheticOptions returns a 100-spot, 25%-vol chain as of today.
func DefaultSyntheticOptions() SyntheticOptions {
	now := time.Now().UTC()
	return SyntheticOptions{
		Spot:       100,
		Vol:        0.25,
		Rate:       DefaultRate,
		StrikeStep: 2.5,
		Strikes:    4,
		Months:     3,
		HalfSpread: 0.05,
		AsOf:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// synthDataProvider implements Source by pricing every contract with
// Black-Scholes at a single volatility. Solving its chain recovers Vol.
type synthDataProvider struct {
	opts SyntheticOptions
}

func NewSyntheticProvider(opts SyntheticOptions) *synthDataProvider {
	return &synthDataProvider{opts: opts}
}

func (p *synthDataProvider) expiries() []time.Time {
	var out []time.Time
	month := time.Date(p.opts.AsOf.Year(), p.opts.AsOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	for len(out) < p.opts.Months {
		exp := ThirdFriday(month)
		if exp.After(p.opts.AsOf) {
			out = append(out, exp)
		}
		month = month.AddDate(0, 1, 0)
	}
	return out
}

func (p *synthDataProvider) Chain(ctx context.Context, underlying string) ([]OptionQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := p.opts
	var noise *distuv.Normal
	if o.Noise > 0 {
		noise = &distuv.Normal{Mu: 0, Sigma: o.Noise, Src: rand.NewSource(o.Seed)}
	}

	atm := math.Round(o.Spot/o.StrikeStep) * o.StrikeStep
	var out []OptionQuote
	for _, exp := range p.expiries() {
		t := YearFraction(o.AsOf, exp)
		for i := -o.Strikes; i <= o.Strikes; i++ {
			strike := atm + float64(i)*o.StrikeStep
			if strike <= 0 {
				continue
			}
			for _, optType := range []pricing.OptionType{pricing.Call, pricing.Put} {
				mid := pricing.BlackScholesPrice(optType, o.Spot, strike, t, o.Rate, o.Vol)
				if noise != nil {
					mid = math.Max(0, mid+noise.Rand())
				}
				out = append(out, OptionQuote{
					ContractSymbol: OptionSymbolFromParts(underlying, exp, optType, strike),
					Underlying:     strings.ToUpper(underlying),
					Type:           optType,
					Strike:         strike,
					Bid:            math.Max(0, mid-o.HalfSpread),
					Ask:            mid + o.HalfSpread,
					Expiration:     exp,
					DataDate:       o.AsOf,
				})
			}
		}
	}
	return out, nil
}

func (p *synthDataProvider) Spots(ctx context.Context, underlying string) ([]Spot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Spot{{
		Underlying: strings.ToUpper(underlying),
		Date:       p.opts.AsOf,
		Price:      p.opts.Spot,
		Rate:       p.opts.Rate,
	}}, nil
}
