// Package ledger keeps the books of a simulated account: cash per currency,
// positions with their cost basis and the realized P&L.
//
// Cash is booked in the currency of the traded asset. Amounts are only
// converted when an aggregate in the base currency is asked for, and a
// missing rate is an error rather than a silent 1:1 conversion.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

var (
	ErrInvalidExecution = errors.New("invalid execution")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Ledger is not safe for concurrent use. The broker that owns it serializes
// access.
type Ledger struct {
	base       string
	cash       market.Wallet
	positions  map[market.Asset]Position
	realized   market.Wallet
	executions []Execution
	lastUpdate time.Time

	rates  ExchangeRates
	margin MarginModel
}

type Option func(*Ledger)

func WithRates(r ExchangeRates) Option { return func(l *Ledger) { l.rates = r } }
func WithMargin(m MarginModel) Option { return func(l *Ledger) { l.margin = m } }

// WithDeposit funds the ledger at construction.
func WithDeposit(amounts ...market.Amount) Option {
	return func(l *Ledger) {
		for _, a := range amounts {
			l.cash.Deposit(a)
		}
	}
}

func New(baseCurrency string, opts ...Option) *Ledger {
	l := &Ledger{
		base:      baseCurrency,
		cash:      market.Wallet{},
		positions: map[market.Asset]Position{},
		realized:  market.Wallet{},
		rates:     NoRates{},
		margin:    CashOnly{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) BaseCurrency() string { return l.base }
func (l *Ledger) LastUpdate() time.Time { return l.lastUpdate }
func (l *Ledger) Rates() ExchangeRates { return l.rates }

func validAmount(a market.Amount) error {
	if a.Currency == "" || math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, a)
	}
	return nil
}

func (l *Ledger) Deposit(a market.Amount) error {
	if err := validAmount(a); err != nil {
		return err
	}
	l.cash.Deposit(a)
	return nil
}

func (l *Ledger) Withdraw(a market.Amount) error {
	if err := validAmount(a); err != nil {
		return err
	}
	l.cash.Withdraw(a)
	return nil
}

func (l *Ledger) Cash() market.Wallet { return l.cash.Clone() }

// Realized is the realized P&L per currency since the ledger was created.
func (l *Ledger) Realized() market.Wallet { return l.realized.Clone() }

// Position returns the open position in asset.
func (l *Ledger) Position(asset market.Asset) (Position, bool) {
	p, ok := l.positions[asset]
	return p, ok
}

// ApplyExecution books a fill: cash moves by the signed notional in the
// asset currency and the position is updated. It returns the P&L the fill
// realized, in the asset currency.
func (l *Ledger) ApplyExecution(e Execution) (float64, error) {
	if e.Size.IsZero() {
		return 0, fmt.Errorf("%w: zero size for %s", ErrInvalidExecution, e.Asset)
	}
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) || e.Price <= 0 {
		return 0, fmt.Errorf("%w: price %v for %s", ErrInvalidExecution, e.Price, e.Asset)
	}
	if e.Asset.Currency == "" {
		return 0, fmt.Errorf("%w: asset %s has no currency", ErrInvalidExecution, e.Asset)
	}

	pos, ok := l.positions[e.Asset]
	if !ok {
		pos = Position{Asset: e.Asset}
	}
	next, realized := pos.apply(e.Size, e.Price, e.Time)
	if next.Open() {
		l.positions[e.Asset] = next
	} else {
		delete(l.positions, e.Asset)
	}

	l.cash.Withdraw(e.Amount())
	if realized != 0 {
		l.realized.Deposit(market.Amount{Currency: e.Asset.Currency, Value: realized})
	}
	l.executions = append(l.executions, e)
	if e.Time.After(l.lastUpdate) {
		l.lastUpdate = e.Time
	}
	return realized, nil
}

// MarkToMarket updates the market price of every position priced in evt.
func (l *Ledger) MarkToMarket(evt market.Event) {
	for asset, pos := range l.positions {
		p, ok := evt.Price(asset, market.DefaultPrice)
		if !ok || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		pos.MktPrice = p
		pos.LastUpdate = evt.Time
		l.positions[asset] = pos
	}
	if evt.Time.After(l.lastUpdate) {
		l.lastUpdate = evt.Time
	}
}

// Snapshot copies the ledger into an Account together with the broker's
// order views.
func (l *Ledger) Snapshot(open, closed []OrderStatus) Account {
	positions := make(map[market.Asset]Position, len(l.positions))
	for a, p := range l.positions {
		positions[a] = p
	}
	return Account{
		BaseCurrency: l.base,
		Cash:         l.cash.Clone(),
		Positions:    positions,
		OpenOrders:   open,
		ClosedOrders: closed,
		Executions:   l.executions[:len(l.executions):len(l.executions)],
		Realized:     l.realized.Clone(),
		LastUpdate:   l.lastUpdate,
		rates:        l.rates,
		margin:       l.margin,
	}
}

func (l *Ledger) Equity() (market.Amount, error) {
	return l.Snapshot(nil, nil).Equity()
}

func (l *Ledger) BuyingPower() (market.Amount, error) {
	return l.Snapshot(nil, nil).BuyingPower()
}
