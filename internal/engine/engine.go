// Package engine solves implied volatility for every quote of an option
// chain. Each quote is an independent scalar solve; bad or unsolvable
// quotes are flagged on their record and never abort the run.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-iv/internal/config"
	"github.com/contactkeval/option-iv/internal/data"
	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// Record statuses besides the solver's own (converged, not_bracketed,
// max_iterations).
const (
	StatusInvalid = "invalid" // the quote failed validation
	StatusNoSpot  = "no_spot" // no underlying price on the quote's data date

	// StatusNonPositive marks a Newton solve that met the price tolerance
	// at sigma <= 0, which is not a volatility.
	StatusNonPositive = "non_positive"
)

type Engine struct {
	cfg  *config.Config
	prov data.Source

	// Progress receives a progress bar while quotes are solved; nil disables it.
	Progress io.Writer
}

// Record is one contract and the outcome of its solve.
type Record struct {
	Quote       data.OptionQuote `json:"quote"`
	Spot        float64          `json:"spot"`
	Rate        float64          `json:"rate"`
	Expiry      float64          `json:"expiry_years"`
	MarketPrice float64          `json:"market_price"`
	Method      pricing.Method   `json:"method"`
	ImpliedVol  *float64         `json:"implied_vol"` // nil when unsolved
	Iterations  int              `json:"iterations"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Greeks      *pricing.Greeks  `json:"greeks,omitempty"` // at the implied vol
}

// Solved reports whether the record carries an implied volatility.
func (r Record) Solved() bool {
	return r.ImpliedVol != nil
}

// Result is the outcome of one Run.
type Result struct {
	RunID      string        `json:"run_id"`
	Underlying string        `json:"underlying"`
	Method     string        `json:"method"`
	Records    []Record      `json:"records"`
	Solved     int           `json:"solved"`
	Failed     int           `json:"failed"`
	Invalid    int           `json:"invalid"`
	Dropped    int           `json:"dropped"`
	Filtered   int           `json:"filtered"`
	Elapsed    time.Duration `json:"elapsed"`
}

func NewEngine(cfg *config.Config, prov data.Source) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// Run fetches the underlying's spots and chain, cleans the chain and solves
// each remaining quote on a bounded pool of workers.
func (e *Engine) Run(ctx context.Context, underlying string) (*Result, error) {
	start := time.Now()
	method := e.cfg.Solver.ParsedMethod()

	spots, err := e.prov.Spots(ctx, underlying)
	if err != nil {
		return nil, fmt.Errorf("spots for %s: %w", underlying, err)
	}
	chain, err := e.prov.Chain(ctx, underlying)
	if err != nil {
		return nil, fmt.Errorf("option chain for %s: %w", underlying, err)
	}

	quotes, dropped := data.Clean(chain)
	quotes, filtered, err := e.filter(quotes, spots)
	if err != nil {
		return nil, err
	}
	logger.Infof("%s: solving %d quotes with %s (%d dropped without quotes, %d filtered)", underlying, len(quotes), method, dropped, filtered)

	res := &Result{
		RunID:      uuid.New().String(),
		Underlying: underlying,
		Method:     string(method),
		Records:    make([]Record, len(quotes)),
		Dropped:    dropped,
		Filtered:   filtered,
	}

	var bar *progressbar.ProgressBar
	if e.Progress != nil {
		bar = progressbar.NewOptions(len(quotes),
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription(underlying),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(20),
			progressbar.OptionClearOnFinish(),
		)
	}

	ivOpts := e.cfg.Solver.IVOptions()

	g, gctx := errgroup.WithContext(ctx)
	// a zero limit would block every Go call
	g.SetLimit(max(1, e.cfg.Report.Workers))
	for i, q := range quotes {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each goroutine owns res.Records[i]
			res.Records[i] = solve(q, spots, method, ivOpts)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, r := range res.Records {
		switch {
		case r.Solved():
			res.Solved++
		case r.Status == StatusInvalid || r.Status == StatusNoSpot:
			res.Invalid++
		default:
			res.Failed++
		}
	}
	res.Elapsed = time.Since(start)

	logger.Infof("%s: run %s: %d solved, %d failed, %d invalid in %v", underlying, res.RunID, res.Solved, res.Failed, res.Invalid, res.Elapsed)
	return res, nil
}

// filter applies the configured quote filter. Quotes without a spot are
// kept so they surface as no_spot records.
func (e *Engine) filter(quotes []data.OptionQuote, spots []data.Spot) ([]data.OptionQuote, int, error) {
	f, err := data.NewQuoteFilter(e.cfg.Data.Filter)
	if err != nil || f == nil {
		return quotes, 0, err
	}
	kept := quotes[:0:0]
	for _, q := range quotes {
		spot, ok := data.SpotOn(spots, q.DataDate)
		if !ok {
			kept = append(kept, q)
			continue
		}
		keep, err := f.Keep(q, spot)
		if err != nil {
			return nil, 0, err
		}
		if keep {
			kept = append(kept, q)
		}
	}
	logger.Debugf("filter %q kept %d of %d quotes", f, len(kept), len(quotes))
	return kept, len(quotes) - len(kept), nil
}

func solve(q data.OptionQuote, spots []data.Spot, method pricing.Method, opts []pricing.IVOption) Record {
	rec := Record{Quote: q, Method: method}

	spot, ok := data.SpotOn(spots, q.DataDate)
	if !ok {
		rec.Status = StatusNoSpot
		rec.Error = fmt.Sprintf("no %s spot on %s", q.Underlying, q.DataDate.Format("2006-01-02"))
		logger.Debugf("%s: %s", q.ContractSymbol, rec.Error)
		return rec
	}

	mq := q.MarketQuote(spot)
	sol, err := mq.ImpliedVol(method, opts...)
	if err != nil {
		// the inputs may be non-finite, which JSON cannot carry
		rec.Status = StatusInvalid
		rec.Error = err.Error()
		logger.Debugf("%s: %v", q.ContractSymbol, err)
		return rec
	}
	rec.Spot, rec.Rate, rec.Expiry, rec.MarketPrice = mq.Spot, mq.Rate, mq.Expiry, mq.Price

	rec.Iterations = sol.Iterations
	rec.Status = sol.Status.String()
	if !sol.OK() {
		rec.Error = sol.Err().Error()
		logger.Debugf("%s: implied vol unavailable (%s, price %.4f)", q.ContractSymbol, sol.Status, mq.Price)
		return rec
	}
	if sol.Root <= 0 {
		rec.Status = StatusNonPositive
		rec.Error = fmt.Sprintf("solved sigma %g is not positive", sol.Root)
		logger.Debugf("%s: %s", q.ContractSymbol, rec.Error)
		return rec
	}

	iv := sol.Root
	g := mq.Greeks(iv)
	rec.ImpliedVol = &iv
	rec.Greeks = &g
	logger.Tracef("%s: iv=%.6f after %d iterations", q.ContractSymbol, iv, sol.Iterations)
	return rec
}
