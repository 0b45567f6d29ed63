package strategies

import (
	"context"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
)

// Noop never trades.
type Noop struct{}

func (Noop) Act(context.Context, market.Event, ledger.Account) ([]order.Order, error) {
	return nil, nil
}
