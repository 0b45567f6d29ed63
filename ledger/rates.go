package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// ErrNoRate is returned when an amount must be converted between currencies
// and no rate is known. Conversions never fall back to 1.
var ErrNoRate = errors.New("no exchange rate")

// ExchangeRates converts between currencies at a point in time.
type ExchangeRates interface {
	Rate(from, to string, t time.Time) (float64, error)
}

// NoRates only knows the identity rate.
type NoRates struct{}

func (NoRates) Rate(from, to string, _ time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrNoRate, from, to)
}

// FixedRates holds constant rates keyed "FROM/TO". The inverse of a known
// pair is derived.
type FixedRates map[string]float64

func (r FixedRates) Set(from, to string, rate float64) { r[from+"/"+to] = rate }

func (r FixedRates) Rate(from, to string, _ time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	if v, ok := r[from+"/"+to]; ok && v > 0 {
		return v, nil
	}
	if v, ok := r[to+"/"+from]; ok && v > 0 {
		return 1 / v, nil
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrNoRate, from, to)
}

// Convert expresses a in currency to using rates at t.
func Convert(rates ExchangeRates, a market.Amount, to string, t time.Time) (market.Amount, error) {
	if a.Currency == to {
		return a, nil
	}
	if rates == nil {
		rates = NoRates{}
	}
	r, err := rates.Rate(a.Currency, to, t)
	if err != nil {
		return market.Amount{}, err
	}
	return market.Amount{Currency: to, Value: a.Value * r}, nil
}

// ConvertWallet sums every balance of w into currency to.
func ConvertWallet(rates ExchangeRates, w market.Wallet, to string, t time.Time) (market.Amount, error) {
	total := market.Amount{Currency: to}
	for _, a := range w.Amounts() {
		c, err := Convert(rates, a, to, t)
		if err != nil {
			return market.Amount{}, err
		}
		total.Value += c.Value
	}
	return total, nil
}
