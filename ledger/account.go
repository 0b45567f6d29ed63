package ledger

import (
	"sort"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
)

// OrderStatus is the broker's view of one order at snapshot time.
//
// Filled is the signed size the order has opened: the order itself for a
// single order, the entry (or primary) leg for a bracket or OTO, the leg
// that won for an OCO. Traded counts every fill of every leg, unsigned, so
// a bracket that went in and out at 10 shows Filled 10 and Traded 20.
type OrderStatus struct {
	Order    order.Order
	State    order.State
	Filled   market.Size
	Traded   market.Size
	OpenedAt time.Time
	ClosedAt time.Time
}

// Account is a read-only snapshot of a ledger. Nothing in it aliases
// state the ledger still mutates: maps are copied and the history slices
// are append-only prefixes clipped to their length.
type Account struct {
	BaseCurrency string
	Cash         market.Wallet
	Positions    map[market.Asset]Position
	OpenOrders   []OrderStatus
	ClosedOrders []OrderStatus
	Executions   []Execution
	Realized     market.Wallet
	LastUpdate   time.Time

	rates  ExchangeRates
	margin MarginModel
}

// Position returns the open position in a, if any.
func (a Account) Position(asset market.Asset) (Position, bool) {
	p, ok := a.Positions[asset]
	return p, ok
}

// Assets lists the assets with open positions, sorted by key.
func (a Account) Assets() []market.Asset {
	out := make([]market.Asset, 0, len(a.Positions))
	for asset := range a.Positions {
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// MarketValue sums the position market values per currency.
func (a Account) MarketValue() market.Wallet {
	w := market.Wallet{}
	for _, p := range a.Positions {
		w.Deposit(market.Amount{Currency: p.Asset.Currency, Value: p.MarketValue()})
	}
	return w
}

// Rates returns the exchange rates the ledger was configured with.
func (a Account) Rates() ExchangeRates {
	if a.rates == nil {
		return NoRates{}
	}
	return a.rates
}

// Equity is cash plus position market value in the base currency, using
// the rates the ledger was configured with.
func (a Account) Equity() (market.Amount, error) { return a.EquityWith(a.rates) }

func (a Account) EquityWith(rates ExchangeRates) (market.Amount, error) {
	w := a.Cash.Clone()
	for _, v := range a.MarketValue().Amounts() {
		w.Deposit(v)
	}
	return ConvertWallet(rates, w, a.BaseCurrency, a.LastUpdate)
}

func (a Account) Exposure() (market.Amount, error) { return a.ExposureWith(a.rates) }

// ExposureWith is the gross absolute market value of all positions in the
// base currency.
func (a Account) ExposureWith(rates ExchangeRates) (market.Amount, error) {
	total := market.Amount{Currency: a.BaseCurrency}
	for _, asset := range a.Assets() {
		p := a.Positions[asset]
		v, err := Convert(rates, market.Amount{Currency: asset.Currency, Value: p.Exposure()}, a.BaseCurrency, a.LastUpdate)
		if err != nil {
			return market.Amount{}, err
		}
		total.Value += v.Value
	}
	return total, nil
}

func (a Account) UnrealizedPNL() (market.Amount, error) {
	w := market.Wallet{}
	for _, p := range a.Positions {
		w.Deposit(market.Amount{Currency: p.Asset.Currency, Value: p.UnrealizedPNL()})
	}
	return ConvertWallet(a.rates, w, a.BaseCurrency, a.LastUpdate)
}

// BuyingPower applies the ledger's margin model to the snapshot.
func (a Account) BuyingPower() (market.Amount, error) {
	m := a.margin
	if m == nil {
		m = CashOnly{}
	}
	return m.BuyingPower(a, a.rates)
}
