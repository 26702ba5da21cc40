package pricing

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/contactkeval/option-iv/internal/rootfind"
)

// MarketQuote is everything needed to price one option or recover its
// implied volatility. Expiry is in years; Rate is continuously compounded
// and may be negative.
type MarketQuote struct {
	Type   OptionType `json:"type" validate:"oneof=call put"`
	Spot   float64    `json:"spot" validate:"finite,gt=0"`
	Strike float64    `json:"strike" validate:"finite,gt=0"`
	Expiry float64    `json:"expiry" validate:"finite,gt=0"`
	Rate   float64    `json:"rate" validate:"finite"`
	Price  float64    `json:"price" validate:"finite,gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the "finite" rule registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			v := fl.Field().Float()
			return !math.IsNaN(v) && !math.IsInf(v, 0)
		})
	})
	return validate
}

// Validate checks the quote against the pricing preconditions.
func (q MarketQuote) Validate() error {
	if err := Validator().Struct(q); err != nil {
		return fmt.Errorf("invalid market quote: %w", err)
	}
	return nil
}

// Greeks prices the quote at sigma. The quote's own Price is ignored.
func (q MarketQuote) Greeks(sigma float64) Greeks {
	return ComputeGreeks(q.Type, q.Spot, q.Strike, q.Expiry, q.Rate, sigma)
}

// ImpliedVol validates the quote and solves for its implied volatility.
// An invalid quote is an error; a quote that validates but cannot be
// inverted comes back as a failed Result.
func (q MarketQuote) ImpliedVol(method Method, opts ...IVOption) (rootfind.Result, error) {
	if err := q.Validate(); err != nil {
		return rootfind.Result{Root: math.NaN()}, err
	}
	return ImpliedVol(method, q.Type, q.Spot, q.Strike, q.Expiry, q.Rate, q.Price, opts...)
}
