// Package pricing turns price observations into executable prices.
//
// An Engine is consulted once per order evaluation and returns a Pricing for
// the observed PriceItem. Engines are pure: the same item, size and time
// always give the same price, so a replay is deterministic.
package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Engine produces a Pricing for one price observation.
type Engine interface {
	Pricing(item market.PriceItem, t time.Time) Pricing
}

// Pricing computes the execution price of a trade of the given signed size.
type Pricing interface {
	Price(size market.Size) float64
}

// Validator is implemented by engines that cannot price every item. An
// order evaluated against an item the engine rejects is rejected.
type Validator interface {
	Supports(item market.PriceItem) error
}

// Referencer is implemented by engines that read a specific price type off
// an item. Order triggers compare against that market price, never against
// the execution price.
type Referencer interface {
	ReferenceType() market.PriceType
}

// Reference returns the market price of item as e sees it, before any
// spread, slippage or fee.
func Reference(e Engine, item market.PriceItem) float64 {
	pt := market.DefaultPrice
	if r, ok := e.(Referencer); ok {
		pt = r.ReferenceType()
	}
	return item.Price(pt)
}

// PricingFunc adapts a function to Pricing.
type PricingFunc func(size market.Size) float64

func (f PricingFunc) Price(size market.Size) float64 { return f(size) }

// NoCost executes at the reference price, no spread and no fees.
type NoCost struct {
	PriceType market.PriceType
}

func (e NoCost) Pricing(item market.PriceItem, _ time.Time) Pricing {
	p := item.Price(e.PriceType)
	return PricingFunc(func(market.Size) float64 { return p })
}

func (e NoCost) ReferenceType() market.PriceType { return e.PriceType }

func (e NoCost) Supports(item market.PriceItem) error { return supports(item, e.PriceType) }

// Spread adds half of BasisPoints to buys and subtracts it from sells.
//
// With UseQuote set, quotes and order books execute at the actual ask for
// buys and the actual bid for sells instead of a modelled spread.
type Spread struct {
	BasisPoints float64
	PriceType   market.PriceType
	UseQuote    bool
}

// DefaultSpreadBips is the spread the engine uses when none is configured.
const DefaultSpreadBips = 5.0

func NewSpread(bps float64) Spread {
	return Spread{BasisPoints: bps}
}

func (e Spread) Pricing(item market.PriceItem, _ time.Time) Pricing {
	if e.UseQuote {
		switch item.(type) {
		case market.PriceQuote, market.OrderBook:
			ask := item.Price(market.AskPrice)
			bid := item.Price(market.BidPrice)
			return PricingFunc(func(size market.Size) float64 {
				if size.IsNegative() {
					return bid
				}
				return ask
			})
		}
	}

	p := item.Price(e.PriceType)
	half := e.BasisPoints / 20_000.0
	return PricingFunc(func(size market.Size) float64 {
		if size.IsNegative() {
			return p * (1 - half)
		}
		return p * (1 + half)
	})
}

func (e Spread) ReferenceType() market.PriceType { return e.PriceType }

func (e Spread) Supports(item market.PriceItem) error { return supports(item, e.PriceType) }

// Slippage wraps another engine and moves the price against the trader in
// proportion to the traded size.
type Slippage struct {
	Engine             Engine
	BasisPointsPerUnit float64
}

func (e Slippage) Pricing(item market.PriceItem, t time.Time) Pricing {
	inner := e.Engine.Pricing(item, t)
	return PricingFunc(func(size market.Size) float64 {
		p := inner.Price(size)
		slip := math.Abs(size.Float64()) * e.BasisPointsPerUnit / 10_000.0
		if size.IsNegative() {
			return p * (1 - slip)
		}
		return p * (1 + slip)
	})
}

func (e Slippage) ReferenceType() market.PriceType {
	if r, ok := e.Engine.(Referencer); ok {
		return r.ReferenceType()
	}
	return market.DefaultPrice
}

func (e Slippage) Supports(item market.PriceItem) error {
	if v, ok := e.Engine.(Validator); ok {
		return v.Supports(item)
	}
	return nil
}

func supports(item market.PriceItem, pt market.PriceType) error {
	if item == nil {
		return fmt.Errorf("pricing: nil price item")
	}
	p := item.Price(pt)
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("pricing: no usable %s price in %T", pt, item)
	}
	return nil
}

// ByName builds an engine from its configuration name.
func ByName(name string, bps float64, pt market.PriceType) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nocost", "no-cost":
		return NoCost{PriceType: pt}, nil
	case "spread":
		if bps == 0 {
			bps = DefaultSpreadBips
		}
		return Spread{BasisPoints: bps, PriceType: pt}, nil
	case "quote":
		return Spread{BasisPoints: bps, PriceType: pt, UseQuote: true}, nil
	default:
		return nil, fmt.Errorf("unknown pricing model %q (supported: nocost, spread, quote)", name)
	}
}
