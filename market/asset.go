package market

import (
	"fmt"
	"strings"
)

// AssetType classifies an instrument.
type AssetType string

const (
	Stock  AssetType = "stock"
	Forex  AssetType = "forex"
	Crypto AssetType = "crypto"
	Future AssetType = "future"
	Option AssetType = "option"
)

// Asset identifies a tradable instrument. It is a comparable value type and
// is used directly as a map key; two assets are the same instrument when
// symbol, exchange and type match.
type Asset struct {
	Symbol   string
	Exchange string
	Type     AssetType

	// Currency the asset is denominated in. Cash movements caused by fills
	// are booked in this currency.
	Currency string

	// Multiplier is the contract size. Zero is treated as 1.
	Multiplier float64
}

func NewStock(symbol, currency string) Asset {
	return Asset{Symbol: strings.ToUpper(symbol), Type: Stock, Currency: currency, Multiplier: 1}
}

// NewForex builds a currency pair asset from "EUR_USD" or "EUR/USD".
// The quote currency becomes the asset currency.
func NewForex(pair string) (Asset, error) {
	p := strings.ToUpper(strings.ReplaceAll(pair, "/", "_"))
	parts := strings.Split(p, "_")
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return Asset{}, fmt.Errorf("invalid forex pair %q", pair)
	}
	return Asset{Symbol: p, Type: Forex, Currency: parts[1], Multiplier: 1}, nil
}

func NewCrypto(symbol, currency string) Asset {
	return Asset{Symbol: strings.ToUpper(symbol), Type: Crypto, Currency: currency, Multiplier: 1}
}

// Key identifies the asset without its descriptive attributes.
func (a Asset) Key() string {
	return string(a.Type) + ":" + a.Symbol + "@" + a.Exchange
}

// Equal reports whether both assets are the same instrument.
func (a Asset) Equal(b Asset) bool {
	return a.Symbol == b.Symbol && a.Exchange == b.Exchange && a.Type == b.Type
}

// ContractSize returns the multiplier, defaulting to 1.
func (a Asset) ContractSize() float64 {
	if a.Multiplier == 0 {
		return 1
	}
	return a.Multiplier
}

func (a Asset) String() string {
	if a.Exchange == "" {
		return a.Symbol
	}
	return a.Symbol + "@" + a.Exchange
}

// Pair returns base and quote currency of a forex asset.
func (a Asset) Pair() (base, quote string, ok bool) {
	if a.Type != Forex {
		return "", "", false
	}
	parts := strings.Split(a.Symbol, "_")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
