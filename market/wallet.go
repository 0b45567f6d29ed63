package market

import (
	"fmt"
	"sort"
)

// Amount is a monetary value in a single currency.
type Amount struct {
	Currency string
	Value    float64
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %.2f", a.Currency, a.Value)
}

// Wallet holds cash balances in multiple currencies. A currency whose
// balance returns to zero is removed.
type Wallet map[string]float64

func NewWallet(amounts ...Amount) Wallet {
	w := Wallet{}
	for _, a := range amounts {
		w.Deposit(a)
	}
	return w
}

func (w Wallet) Deposit(a Amount) {
	v := w[a.Currency] + a.Value
	if v == 0 {
		delete(w, a.Currency)
		return
	}
	w[a.Currency] = v
}

func (w Wallet) Withdraw(a Amount) {
	w.Deposit(Amount{Currency: a.Currency, Value: -a.Value})
}

func (w Wallet) Get(currency string) float64 { return w[currency] }

func (w Wallet) Currencies() []string {
	out := make([]string, 0, len(w))
	for c := range w {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (w Wallet) Clone() Wallet {
	out := make(Wallet, len(w))
	for c, v := range w {
		out[c] = v
	}
	return out
}

func (w Wallet) Amounts() []Amount {
	out := make([]Amount, 0, len(w))
	for _, c := range w.Currencies() {
		out = append(out, Amount{Currency: c, Value: w[c]})
	}
	return out
}
