package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/Knetic/govaluate"
)

var ErrFilterNotBool = errors.New("filter expression must evaluate to a boolean")

// FilterVariables lists the names a filter expression can use.
var FilterVariables = []string{"type", "strike", "spot", "moneyness", "days", "years", "bid", "ask", "mid"}

// QuoteFilter selects quotes with a boolean expression such as
//
//	moneyness >= 0.8 && moneyness <= 1.2 && days <= 90
//	type == 'put' && bid > 0.05
//
// moneyness is strike / spot and days counts calendar days to expiry.
type QuoteFilter struct {
	src  string
	expr *govaluate.EvaluableExpression
}

// NewQuoteFilter compiles expr and evaluates it once against a sample
// at-the-money quote, so an expression that does not yield a boolean fails
// here rather than mid-run. An empty expr yields a nil filter, which keeps
// every quote.
func NewQuoteFilter(expr string) (*QuoteFilter, error) {
	if expr == "" {
		return nil, nil
	}
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expr, err)
	}
	known := make(map[string]bool, len(FilterVariables))
	for _, v := range FilterVariables {
		known[v] = true
	}
	for _, v := range e.Vars() {
		if !known[v] {
			return nil, fmt.Errorf("filter %q: unknown variable %q", expr, v)
		}
	}
	f := &QuoteFilter{src: expr, expr: e}
	if _, err := f.Keep(sampleQuote, sampleSpot); err != nil {
		return nil, err
	}
	return f, nil
}

var (
	sampleQuote = OptionQuote{
		ContractSymbol: "sample",
		Type:           "call",
		Strike:         100,
		Bid:            2,
		Ask:            2.2,
		Expiration:     time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		DataDate:       time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC),
	}
	sampleSpot = Spot{Price: 100, Rate: DefaultRate}
)

func (f *QuoteFilter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

// Keep evaluates the filter for q against the underlying's spot.
func (f *QuoteFilter) Keep(q OptionQuote, spot Spot) (bool, error) {
	if f == nil {
		return true, nil
	}
	moneyness := 0.0
	if spot.Price != 0 {
		moneyness = q.Strike / spot.Price
	}
	days := q.Expiration.Sub(q.DataDate).Hours() / 24
	params := map[string]interface{}{
		"type":      string(q.Type),
		"strike":    q.Strike,
		"spot":      spot.Price,
		"moneyness": moneyness,
		"days":      days,
		"years":     days / 365,
		"bid":       q.Bid,
		"ask":       q.Ask,
		"mid":       q.Mid(),
	}
	res, err := f.expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.src, q.ContractSymbol, err)
	}
	keep, ok := res.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q: %w", f.src, ErrFilterNotBool)
	}
	return keep, nil
}
