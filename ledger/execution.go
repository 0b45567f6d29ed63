package ledger

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Execution is a fill: Size of Asset traded at Price at Time on behalf of
// the order OrderID. Executions are facts and are never modified.
type Execution struct {
	OrderID string
	Asset   market.Asset
	Size    market.Size
	Price   float64
	Time    time.Time
}

// Value is the signed notional of the fill in the asset currency.
func (e Execution) Value() float64 {
	return e.Size.Float64() * e.Price * e.Asset.ContractSize()
}

// Amount is the notional as an Amount in the asset currency.
func (e Execution) Amount() market.Amount {
	return market.Amount{Currency: e.Asset.Currency, Value: e.Value()}
}

func (e Execution) String() string {
	return fmt.Sprintf("%s %s %s @ %v", e.OrderID, e.Size, e.Asset, e.Price)
}
