// Package strategies holds the policies a backtest run asks for orders.
// A policy sees each event together with the account snapshot the engine
// produced for it and answers with the orders to place next.
package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
)

// Policy decides which orders to place after an event was processed.
type Policy interface {
	Act(ctx context.Context, evt market.Event, acct ledger.Account) ([]order.Order, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, evt market.Event, acct ledger.Account) ([]order.Order, error)

func (f PolicyFunc) Act(ctx context.Context, evt market.Event, acct ledger.Account) ([]order.Order, error) {
	return f(ctx, evt, acct)
}

// Config carries the parameters every built-in policy draws from. Fields a
// policy does not use are ignored.
type Config struct {
	Asset market.Asset
	Size  market.Size

	TakeProfitPct float64
	StopLossPct   float64
	RiskPct       float64

	FastPeriod int
	SlowPeriod int
}

// Names lists the policies ByName knows.
func Names() []string {
	return []string{"noop", "open-once", "ema-cross"}
}

// ByName builds a fresh policy. Policies keep state, so every run needs its
// own instance.
func ByName(name string, cfg Config) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none", "":
		return Noop{}, nil

	case "open-once", "openonce":
		p := &OpenOnce{
			Asset:         cfg.Asset,
			Size:          cfg.Size,
			TakeProfitPct: cfg.TakeProfitPct,
			StopLossPct:   cfg.StopLossPct,
			RiskPct:       cfg.RiskPct,
		}
		return p, p.validate()

	case "ema-cross", "emacross":
		return NewEMACross(cfg)

	default:
		return nil, fmt.Errorf("unknown policy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
}
