package data

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// chainLister fetches every contract snapshot of an underlying's option chain.
type chainLister func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error)

// MassiveOptions configures which part of the chain is kept.
type MassiveOptions struct {
	// Months keeps the first N monthly (third Friday) expiries. 0 keeps all
	// expiries, weeklies included.
	Months int
	// ExpiryDayOffset shifts expiries before the third-Friday test (30 for VIX).
	ExpiryDayOffset int
	// Rate annotates the spot; the snapshot carries no rate.
	Rate float64
	// RequestsPerMinute caps snapshot requests. 0 disables the limit.
	RequestsPerMinute int
}

// massiveDataProvider implements Source with Massive option chain snapshots.
// One snapshot yields both the chain and the underlying price, so the last
// snapshot per underlying is cached for the Spots call that follows Chain.
type massiveDataProvider struct {
	list    chainLister
	opts    MassiveOptions
	now     func() time.Time
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string][]models.OptionContractSnapshot
}

// NewMassiveDataProvider constructs a Massive-backed source.
func NewMassiveDataProvider(apiKey string, opts MassiveOptions) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")
	client := massive.New(apiKey)

	list := func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error) {
		it := client.ListOptionsChainSnapshot(ctx, &models.ListOptionsChainParams{
			UnderlyingAsset: underlying,
		})
		var out []models.OptionContractSnapshot
		for it.Next() {
			out = append(out, it.Item())
		}
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("massive option chain %s: %w", underlying, err)
		}
		return out, nil
	}
	return newMassiveDataProvider(list, opts)
}

func newMassiveDataProvider(list chainLister, opts MassiveOptions) *massiveDataProvider {
	p := &massiveDataProvider{
		list:  list,
		opts:  opts,
		now:   time.Now,
		cache: make(map[string][]models.OptionContractSnapshot),
	}
	if opts.RequestsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return p
}

func (p *massiveDataProvider) snapshot(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error) {
	key := strings.ToUpper(underlying)

	p.mu.Lock()
	snaps, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return snaps, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("massive rate limit: %w", err)
		}
	}
	logger.Debugf("fetching option chain snapshot for %s", underlying)
	snaps, err := p.list(ctx, underlying)
	if err != nil {
		return nil, err
	}
	logger.Debugf("received %d contracts for %s", len(snaps), underlying)

	p.mu.Lock()
	p.cache[key] = snaps
	p.mu.Unlock()
	return snaps, nil
}

func (p *massiveDataProvider) today() time.Time {
	n := p.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (p *massiveDataProvider) Chain(ctx context.Context, underlying string) ([]OptionQuote, error) {
	snaps, err := p.snapshot(ctx, underlying)
	if err != nil {
		return nil, err
	}

	dataDate := p.today()
	quotes := make([]OptionQuote, 0, len(snaps))
	for _, s := range snaps {
		optType, err := pricing.ParseOptionType(s.Details.ContractType)
		if err != nil {
			logger.Tracef("skipping %s: %v", s.Details.Ticker, err)
			continue
		}
		exp := time.Time(s.Details.ExpirationDate)
		quotes = append(quotes, OptionQuote{
			ContractSymbol: s.Details.Ticker,
			Underlying:     underlying,
			Type:           optType,
			Strike:         s.Details.StrikePrice,
			Bid:            s.LastQuote.Bid,
			Ask:            s.LastQuote.Ask,
			Expiration:     time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC),
			DataDate:       dataDate,
		})
	}

	if p.opts.Months > 0 {
		keep := MonthlyExpiries(expirations(quotes), p.opts.ExpiryDayOffset, p.opts.Months)
		quotes = filterExpiries(quotes, keep)
		logger.Debugf("%s: kept %d contracts across %d monthly expiries", underlying, len(quotes), len(keep))
	}
	return quotes, nil
}

func (p *massiveDataProvider) Spots(ctx context.Context, underlying string) ([]Spot, error) {
	snaps, err := p.snapshot(ctx, underlying)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.UnderlyingAsset.Price > 0 {
			return []Spot{{
				Underlying: underlying,
				Date:       p.today(),
				Price:      s.UnderlyingAsset.Price,
				Rate:       p.opts.Rate,
			}}, nil
		}
	}
	return nil, fmt.Errorf("no underlying price in %s option chain snapshot", underlying)
}
