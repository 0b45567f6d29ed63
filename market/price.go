package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PriceType selects which reference price a PriceItem reports.
type PriceType int

const (
	DefaultPrice PriceType = iota
	OpenPrice
	HighPrice
	LowPrice
	ClosePrice
	MidPrice
	AskPrice
	BidPrice
	TradedPrice
)

var priceTypeNames = map[PriceType]string{
	DefaultPrice: "DEFAULT",
	OpenPrice:    "OPEN",
	HighPrice:    "HIGH",
	LowPrice:     "LOW",
	ClosePrice:   "CLOSE",
	MidPrice:     "MID",
	AskPrice:     "ASK",
	BidPrice:     "BID",
	TradedPrice:  "TRADE",
}

func (t PriceType) String() string {
	if s, ok := priceTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("PriceType(%d)", int(t))
}

// ParsePriceType is the inverse of String. The empty string maps to DefaultPrice.
func ParsePriceType(s string) (PriceType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultPrice, nil
	}
	for k, v := range priceTypeNames {
		if v == s {
			return k, nil
		}
	}
	return DefaultPrice, fmt.Errorf("unknown price type %q", s)
}

// PriceItem is a single price observation for one asset. The concrete
// variants are TradePrice, PriceBar, PriceQuote and OrderBook.
type PriceItem interface {
	// Price returns the reference price for the requested type. Types a
	// variant cannot answer fall back to its default price.
	Price(t PriceType) float64
	Volume() float64
}

// TradePrice is the price and volume of an actual trade.
type TradePrice struct {
	Value float64
	Size  float64
}

func (p TradePrice) Price(PriceType) float64 { return p.Value }
func (p TradePrice) Volume() float64 { return p.Size }

// PriceBar is an OHLCV bar. Span is the bar duration and is zero when unknown.
type PriceBar struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
	Span  time.Duration
}

func (b PriceBar) Price(t PriceType) float64 {
	switch t {
	case OpenPrice:
		return b.Open
	case HighPrice:
		return b.High
	case LowPrice:
		return b.Low
	case MidPrice:
		return (b.High + b.Low) / 2
	default:
		return b.Close
	}
}

func (b PriceBar) Volume() float64 { return b.Vol }

// Valid reports whether the bar is internally consistent.
func (b PriceBar) Valid() bool {
	return b.Low <= b.High && b.Open >= b.Low && b.Open <= b.High &&
		b.Close >= b.Low && b.Close <= b.High
}

// PriceQuote is the top of book.
type PriceQuote struct {
	Ask     float64
	AskSize float64
	Bid     float64
	BidSize float64
}

func (q PriceQuote) Price(t PriceType) float64 {
	switch t {
	case AskPrice:
		return q.Ask
	case BidPrice:
		return q.Bid
	default:
		return q.Mid()
	}
}

func (q PriceQuote) Mid() float64 {
	if q.Bid == 0 && q.Ask == 0 {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

func (q PriceQuote) Spread() float64 { return q.Ask - q.Bid }

func (q PriceQuote) Volume() float64 { return q.AskSize + q.BidSize }

// OrderBookEntry is one price level of an order book.
type OrderBookEntry struct {
	Size  float64
	Limit float64
}

// OrderBook is a depth snapshot. Asks are sorted ascending and bids
// descending by limit, best level first.
type OrderBook struct {
	Asks []OrderBookEntry
	Bids []OrderBookEntry
}

func (o OrderBook) BestAsk() (OrderBookEntry, bool) {
	if len(o.Asks) == 0 {
		return OrderBookEntry{}, false
	}
	return o.Asks[0], true
}

func (o OrderBook) BestBid() (OrderBookEntry, bool) {
	if len(o.Bids) == 0 {
		return OrderBookEntry{}, false
	}
	return o.Bids[0], true
}

func (o OrderBook) Price(t PriceType) float64 {
	ask, okA := o.BestAsk()
	bid, okB := o.BestBid()
	switch {
	case t == AskPrice && okA:
		return ask.Limit
	case t == BidPrice && okB:
		return bid.Limit
	case okA && okB:
		return (ask.Limit + bid.Limit) / 2
	case okA:
		return ask.Limit
	case okB:
		return bid.Limit
	}
	return math.NaN()
}

func (o OrderBook) Spread() float64 {
	ask, okA := o.BestAsk()
	bid, okB := o.BestBid()
	if !okA || !okB {
		return 0
	}
	return ask.Limit - bid.Limit
}

func (o OrderBook) Volume() float64 {
	var v float64
	for _, e := range o.Asks {
		v += math.Abs(e.Size)
	}
	for _, e := range o.Bids {
		v += math.Abs(e.Size)
	}
	return v
}

// Side returns the levels a trade of the given direction executes against:
// buys take the asks, sells take the bids.
func (o OrderBook) Side(buy bool) []OrderBookEntry {
	if buy {
		return o.Asks
	}
	return o.Bids
}
