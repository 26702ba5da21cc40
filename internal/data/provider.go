// Package data loads option chains and underlying prices and turns them
// into the scalar quotes the pricing package consumes.
//
// Sources:
//   - local CSV files written by the ingest and clean steps
//   - Massive option chain snapshots
//   - a synthetic Black-Scholes chain for demos and tests
package data

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// DefaultRate is the fed funds rate spots are annotated with when no rate is given.
const DefaultRate = 0.0364

const dateLayout = "2006-01-02"

// Source supplies option chains and the underlying's price.
type Source interface {
	// Chain returns every quoted contract for the underlying.
	Chain(ctx context.Context, underlying string) ([]OptionQuote, error)
	// Spots returns the underlying's price for each data date, annotated
	// with the risk-free rate of that day.
	Spots(ctx context.Context, underlying string) ([]Spot, error)
}

// OptionQuote is one contract's bid/ask on a given data date.
type OptionQuote struct {
	ContractSymbol string             `json:"contract_symbol"`
	Underlying     string             `json:"underlying"`
	Type           pricing.OptionType `json:"type"`
	Strike         float64            `json:"strike"`
	Bid            float64            `json:"bid"`
	Ask            float64            `json:"ask"`
	Expiration     time.Time          `json:"expiration"`
	DataDate       time.Time          `json:"data_date"`
}

// Mid is the option's value: (bid + ask) / 2.
func (q OptionQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// HasQuote reports whether the contract has a posted bid or ask. Contracts
// with neither are mostly deep in the money with no interest. A non-finite
// bid or ask is not a quote.
func (q OptionQuote) HasQuote() bool {
	if !finite(q.Bid) || !finite(q.Ask) {
		return false
	}
	return q.Bid != 0 || q.Ask != 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarketQuote combines the contract with the underlying price into the
// inputs of a single implied volatility solve, priced at mid.
func (q OptionQuote) MarketQuote(spot Spot) pricing.MarketQuote {
	return pricing.MarketQuote{
		Type:   q.Type,
		Spot:   spot.Price,
		Strike: q.Strike,
		Expiry: YearFraction(q.DataDate, q.Expiration),
		Rate:   spot.Rate,
		Price:  q.Mid(),
	}
}

// Spot is the underlying's close on a data date and the rate to discount with.
type Spot struct {
	Underlying string    `json:"underlying"`
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
	Rate       float64   `json:"rate"`

	// RateMissing marks a spot read without a rate (an empty fed_funds
	// cell). A zero Rate alone is a valid rate.
	RateMissing bool `json:"-"`
}

// YearFraction is the calendar-day distance between two dates in years (365 days).
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365
}

// Clean drops contracts with no posted quote and sorts the rest by data
// date, expiration, underlying, type and strike. It returns the number of
// dropped contracts.
func Clean(quotes []OptionQuote) ([]OptionQuote, int) {
	kept := make([]OptionQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.HasQuote() {
			kept = append(kept, q)
		}
	}
	dropped := len(quotes) - len(kept)
	if dropped > 0 {
		logger.Debugf("removing %d options with no posted quotes", dropped)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		switch {
		case !a.DataDate.Equal(b.DataDate):
			return a.DataDate.Before(b.DataDate)
		case !a.Expiration.Equal(b.Expiration):
			return a.Expiration.Before(b.Expiration)
		case a.Underlying != b.Underlying:
			return a.Underlying < b.Underlying
		case a.Type != b.Type:
			return a.Type < b.Type
		}
		return a.Strike < b.Strike
	})
	return kept, dropped
}

// SpotOn returns the spot whose date falls on the same calendar day as d.
func SpotOn(spots []Spot, d time.Time) (Spot, bool) {
	day := d.Format(dateLayout)
	for _, s := range spots {
		if s.Date.Format(dateLayout) == day {
			return s, true
		}
	}
	return Spot{}, false
}

// IsMonthlyExpiry reports whether d, shifted by offsetDays, is a third
// Friday of the month (a Friday between the 15th and the 21st). VIX options
// expire 30 days before the SPX monthly and need offsetDays = 30.
func IsMonthlyExpiry(d time.Time, offsetDays int) bool {
	d = d.AddDate(0, 0, offsetDays)
	return d.Weekday() == time.Friday && d.Day() >= 15 && d.Day() <= 21
}

// MonthlyExpiries keeps the first `months` monthly expiries of dates, in
// ascending order. months <= 0 keeps all of them.
func MonthlyExpiries(dates []time.Time, offsetDays, months int) []time.Time {
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []time.Time
	for _, d := range sorted {
		if len(out) > 0 && out[len(out)-1].Equal(d) {
			continue
		}
		if !IsMonthlyExpiry(d, offsetDays) {
			continue
		}
		out = append(out, d)
		if months > 0 && len(out) == months {
			break
		}
	}
	return out
}

// ThirdFriday returns the third Friday of d's month, at midnight in d's location.
func ThirdFriday(d time.Time) time.Time {
	t := time.Date(d.Year(), d.Month(), 15, 0, 0, 0, 0, d.Location())
	for t.Weekday() != time.Friday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// OptionSymbolFromParts builds an OCC-style symbol:
// O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>.
func OptionSymbolFromParts(underlying string, expiryDate time.Time, optType pricing.OptionType, strike float64) string {
	expDt := expiryDate.Format("060102")
	cp := "C"
	if optType == pricing.Put {
		cp = "P"
	}
	root := strings.TrimPrefix(strings.ToUpper(underlying), "^")
	return fmt.Sprintf("O:%s%s%s%08d", root, expDt, cp, int(math.Round(strike*1000)))
}

// filterExpiries keeps the quotes whose expiration is in keep.
func filterExpiries(quotes []OptionQuote, keep []time.Time) []OptionQuote {
	allowed := make(map[string]bool, len(keep))
	for _, d := range keep {
		allowed[d.Format(dateLayout)] = true
	}
	out := quotes[:0:0]
	for _, q := range quotes {
		if allowed[q.Expiration.Format(dateLayout)] {
			out = append(out, q)
		}
	}
	return out
}

func expirations(quotes []OptionQuote) []time.Time {
	out := make([]time.Time, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, q.Expiration)
	}
	return out
}
