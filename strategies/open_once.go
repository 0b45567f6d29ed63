package strategies

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/risk"
)

// OpenOnce opens a single position the first time it sees a price for
// Asset. With TakeProfitPct or StopLossPct set it places a bracket whose
// exits sit at those distances from the observed price, otherwise a plain
// market order. It is meant as a wiring test.
//
// With RiskPct and StopLossPct set, Size only gives the direction and the
// quantity is chosen so that hitting the stop loses RiskPct of equity.
type OpenOnce struct {
	Asset         market.Asset
	Size          market.Size
	TakeProfitPct float64
	StopLossPct   float64
	RiskPct       float64

	opened bool
}

func (s *OpenOnce) validate() error {
	if s.Size.IsZero() {
		return errors.New("open-once: size must be non-zero")
	}
	if s.Asset.Symbol == "" {
		return errors.New("open-once: asset is required")
	}
	if s.TakeProfitPct < 0 || s.StopLossPct < 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("open-once: invalid exit distances tp=%v sl=%v", s.TakeProfitPct, s.StopLossPct)
	}
	if s.RiskPct < 0 || s.RiskPct >= 1 || s.RiskPct > 0 && s.StopLossPct == 0 {
		return fmt.Errorf("open-once: risk_pct %v needs a stop loss and must be below 1", s.RiskPct)
	}
	return nil
}

// Opened reports whether the entry was already sent.
func (s *OpenOnce) Opened() bool { return s.opened }

func (s *OpenOnce) Act(_ context.Context, evt market.Event, acct ledger.Account) ([]order.Order, error) {
	if s.opened {
		return nil, nil
	}
	px, ok := evt.Price(s.Asset, market.DefaultPrice)
	if !ok {
		return nil, nil
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	size := s.Size
	if s.RiskPct > 0 {
		var err error
		if size, err = s.riskSize(px, evt, acct); err != nil {
			return nil, err
		}
		if size.IsZero() {
			return nil, nil
		}
	}

	var (
		o   order.Order
		err error
	)
	if s.TakeProfitPct > 0 || s.StopLossPct > 0 {
		tp, sl := s.exits(px)
		o, err = order.NewMarketBracket(s.Asset, size, tp, sl)
	} else {
		o, err = order.NewMarket(s.Asset, size)
	}
	if err != nil {
		return nil, fmt.Errorf("open-once: %w", err)
	}

	s.opened = true
	return []order.Order{o}, nil
}

// riskSize sizes the entry from the account equity, expressed in the
// asset's currency.
func (s *OpenOnce) riskSize(px float64, evt market.Event, acct ledger.Account) (market.Size, error) {
	eq, err := acct.Equity()
	if err != nil {
		return market.Size{}, fmt.Errorf("open-once: %w", err)
	}
	eq, err = ledger.Convert(acct.Rates(), eq, s.Asset.Currency, evt.Time)
	if err != nil {
		return market.Size{}, fmt.Errorf("open-once: %w", err)
	}
	_, sl := s.exits(px)
	res, err := risk.Calculate(risk.Inputs{
		Equity:     eq.Value,
		RiskPct:    s.RiskPct,
		EntryPrice: px,
		StopPrice:  sl,
		Multiplier: s.Asset.ContractSize(),
	})
	if err != nil {
		return market.Size{}, fmt.Errorf("open-once: %w", err)
	}
	if s.Size.IsNegative() {
		return res.Units.Neg(), nil
	}
	return res.Units, nil
}

// exits returns take profit and stop loss prices around px. A missing
// distance puts that exit at a price no positive finite quote can cross:
// the largest float above the market, the smallest positive one below it.
func (s *OpenOnce) exits(px float64) (tp, sl float64) {
	long := s.Size.IsPositive()

	switch {
	case s.TakeProfitPct == 0 && long:
		tp = math.MaxFloat64
	case s.TakeProfitPct == 0:
		tp = math.SmallestNonzeroFloat64
	case long:
		tp = px * (1 + s.TakeProfitPct)
	default:
		// Short: profit below.
		tp = px * (1 - s.TakeProfitPct)
		if tp <= 0 {
			tp = math.SmallestNonzeroFloat64
		}
	}

	switch {
	case s.StopLossPct == 0 && long:
		sl = math.SmallestNonzeroFloat64
	case s.StopLossPct == 0:
		sl = math.MaxFloat64
	case long:
		sl = px * (1 - s.StopLossPct)
	default:
		sl = px * (1 + s.StopLossPct)
	}
	return tp, sl
}
