package ledger

import (
	"fmt"

	"github.com/rustyeddy/tradesim/market"
)

// MarginModel decides how much new exposure an account can take on.
type MarginModel interface {
	BuyingPower(acct Account, rates ExchangeRates) (market.Amount, error)
}

// CashOnly allows trading with the cash on hand only. Short positions are a
// liability and reduce the buying power by their market value.
type CashOnly struct {
	// MinimumCash is kept back and never available for trading.
	MinimumCash float64
}

func (m CashOnly) BuyingPower(acct Account, rates ExchangeRates) (market.Amount, error) {
	cash, err := ConvertWallet(rates, acct.Cash, acct.BaseCurrency, acct.LastUpdate)
	if err != nil {
		return market.Amount{}, err
	}
	for _, p := range acct.Positions {
		if !p.IsShort() {
			continue
		}
		v, err := Convert(rates, market.Amount{Currency: p.Asset.Currency, Value: p.Exposure()}, acct.BaseCurrency, acct.LastUpdate)
		if err != nil {
			return market.Amount{}, err
		}
		cash.Value -= v.Value
	}
	cash.Value -= m.MinimumCash
	return cash, nil
}

// Leveraged allows exposure up to Leverage times the equity.
type Leveraged struct {
	Leverage float64
}

func (m Leveraged) BuyingPower(acct Account, rates ExchangeRates) (market.Amount, error) {
	if m.Leverage <= 0 {
		return market.Amount{}, fmt.Errorf("leverage must be > 0, got %v", m.Leverage)
	}
	equity, err := acct.EquityWith(rates)
	if err != nil {
		return market.Amount{}, err
	}
	exposure, err := acct.ExposureWith(rates)
	if err != nil {
		return market.Amount{}, err
	}
	return market.Amount{Currency: acct.BaseCurrency, Value: equity.Value*m.Leverage - exposure.Value}, nil
}
