// Package broker defines what a policy needs from a broker: place and
// cancel orders and look at the account.
package broker

import (
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/order"
)

type Broker interface {
	// Place hands orders to the broker and returns their IDs. Orders are
	// evaluated from the next processed event on.
	Place(orders ...order.Order) ([]string, error)
	Cancel(id string) error
	Account() ledger.Account
}
