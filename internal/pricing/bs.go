package pricing

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// OptionType selects the payoff of a European option.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and their one-letter forms, in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Greeks bundles the price and first-order sensitivities of one option.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
}

// All functions below share the same precondition: sigma > 0 and t > 0.
// It is not checked. Violations show up as NaN or ±Inf in the result, and
// callers are expected to validate a MarketQuote before pricing it.

// D1D2 returns the Black-Scholes d1 and d2 terms.
//
//	d1 = (ln(S/K) + (r + sigma^2/2) t) / (sigma sqrt(t))
//	d2 = d1 - sigma sqrt(t)
func D1D2(
	S float64, // spot
	K float64, // strike
	t float64, // time to expiry in years
	r float64, // risk-free rate, continuously compounded
	sigma float64, // volatility
) (d1, d2 float64) {
	sqrtT := math.Sqrt(t)
	d1 = (math.Log(S/K) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	return d1, d2
}

// BlackScholesCall prices a European call: S N(d1) - K e^{-rt} N(d2).
func BlackScholesCall(S, K, t, r, sigma float64) float64 {
	d1, d2 := D1D2(S, K, t, r, sigma)
	return S*normCDF(d1) - K*math.Exp(-r*t)*normCDF(d2)
}

// BlackScholesPut prices a European put: K e^{-rt} N(-d2) - S N(-d1).
func BlackScholesPut(S, K, t, r, sigma float64) float64 {
	d1, d2 := D1D2(S, K, t, r, sigma)
	return K*math.Exp(-r*t)*normCDF(-d2) - S*normCDF(-d1)
}

// BlackScholesPrice prices a call or a put. Any type other than Put is
// priced as a call.
func BlackScholesPrice(optType OptionType, S, K, t, r, sigma float64) float64 {
	if optType == Put {
		return BlackScholesPut(S, K, t, r, sigma)
	}
	return BlackScholesCall(S, K, t, r, sigma)
}

// DeltaCall is N(d1).
func DeltaCall(S, K, t, r, sigma float64) float64 {
	d1, _ := D1D2(S, K, t, r, sigma)
	return normCDF(d1)
}

// DeltaPut is N(d1) - 1.
func DeltaPut(S, K, t, r, sigma float64) float64 {
	d1, _ := D1D2(S, K, t, r, sigma)
	return normCDF(d1) - 1
}

func Delta(optType OptionType, S, K, t, r, sigma float64) float64 {
	if optType == Put {
		return DeltaPut(S, K, t, r, sigma)
	}
	return DeltaCall(S, K, t, r, sigma)
}

// Vega is S n(d1) sqrt(t), per unit of volatility (not per vol point). It is
// the same for calls and puts, and is the derivative Newton uses when
// solving for implied volatility.
func Vega(S, K, t, r, sigma float64) float64 {
	d1, _ := D1D2(S, K, t, r, sigma)
	return S * normPDF(d1) * math.Sqrt(t)
}

// Gamma is n(d1) / (S sigma sqrt(t)), the same for calls and puts.
func Gamma(S, K, t, r, sigma float64) float64 {
	d1, _ := D1D2(S, K, t, r, sigma)
	return normPDF(d1) / (S * sigma * math.Sqrt(t))
}

// ComputeGreeks prices one option and returns its price, delta, gamma and vega.
func ComputeGreeks(optType OptionType, S, K, t, r, sigma float64) Greeks {
	return Greeks{
		Price: BlackScholesPrice(optType, S, K, t, r, sigma),
		Delta: Delta(optType, S, K, t, r, sigma),
		Gamma: Gamma(S, K, t, r, sigma),
		Vega:  Vega(S, K, t, r, sigma),
	}
}

func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
