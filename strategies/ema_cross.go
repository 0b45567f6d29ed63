package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
)

// EMACross trades one asset on a fast/slow EMA crossover.
// - Enters only on a cross
// - Reverses on the opposite cross with a single market order
type EMACross struct {
	Asset market.Asset
	Size  market.Size

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastDiff     float64
	haveLastDiff bool
}

func NewEMACross(cfg Config) (*EMACross, error) {
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 10
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = 30
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.Size.IsZero() {
		return nil, fmt.Errorf("ema-cross: size must be non-zero")
	}
	if cfg.Asset.Symbol == "" {
		return nil, fmt.Errorf("ema-cross: asset is required")
	}
	return &EMACross{
		Asset: cfg.Asset,
		Size:  cfg.Size.Abs(),
		fast:  indicators.NewEMA(cfg.FastPeriod),
		slow:  indicators.NewEMA(cfg.SlowPeriod),
	}, nil
}

func (s *EMACross) Act(_ context.Context, evt market.Event, acct ledger.Account) ([]order.Order, error) {
	px, ok := evt.Price(s.Asset, market.DefaultPrice)
	if !ok {
		return nil, nil
	}

	s.fast.Update(px)
	s.slow.Update(px)
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil, nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil, nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	var target market.Size
	switch {
	case bullCross:
		target = s.Size
	case bearCross:
		target = s.Size.Neg()
	default:
		return nil, nil
	}

	current := market.ZeroSize
	if p, ok := acct.Position(s.Asset); ok {
		current = p.Size
	}
	delta := target.Sub(current)
	if delta.IsZero() {
		return nil, nil
	}

	o, err := order.NewMarket(s.Asset, delta, order.WithTag("ema-cross"))
	if err != nil {
		return nil, fmt.Errorf("ema-cross: %w", err)
	}
	return []order.Order{o}, nil
}
