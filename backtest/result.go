package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
)

// EquityPoint is the account equity in base currency after one event.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result summarizes a run.
type Result struct {
	Name string

	Start time.Time
	End   time.Time

	Events     int
	Executions int

	Currency    string
	StartEquity float64
	EndEquity   float64

	// Equity holds one point per event whose equity could be valued. Events
	// with a missing exchange rate leave a gap.
	Equity []EquityPoint

	// MaxDrawdownPct is the largest peak-to-trough fall of Equity, in percent.
	MaxDrawdownPct float64

	// Account is the snapshot after the last processed event.
	Account ledger.Account

	peak float64
}

func newResult(name string, acct ledger.Account) Result {
	res := Result{Name: name, Currency: acct.BaseCurrency, Account: acct}
	if eq, err := acct.Equity(); err == nil {
		res.StartEquity = eq.Value
		res.EndEquity = eq.Value
		res.peak = eq.Value
	}
	return res
}

func (r *Result) observe(t time.Time, acct ledger.Account) {
	if r.Start.IsZero() {
		r.Start = t
	}
	r.End = t
	r.Events++
	r.Executions = len(acct.Executions)
	r.Account = acct

	eq, err := acct.Equity()
	if err != nil {
		return
	}
	r.Equity = append(r.Equity, EquityPoint{Time: t, Equity: eq.Value})
	r.EndEquity = eq.Value

	if eq.Value > r.peak {
		r.peak = eq.Value
	}
	if r.peak > 0 {
		if dd := (r.peak - eq.Value) / r.peak * 100; dd > r.MaxDrawdownPct {
			r.MaxDrawdownPct = dd
		}
	}
}

func (r Result) NetPL() float64 { return r.EndEquity - r.StartEquity }

// Record converts the result into the journal's run summary.
func (r Result) Record(runID, policy, dataset string) journal.RunRecord {
	return journal.RunRecord{
		RunID:          runID,
		Created:        time.Now().UTC(),
		Policy:         policy,
		Dataset:        dataset,
		Start:          r.Start,
		End:            r.End,
		Events:         r.Events,
		Executions:     r.Executions,
		Currency:       r.Currency,
		StartEquity:    r.StartEquity,
		EndEquity:      r.EndEquity,
		MaxDrawdownPct: r.MaxDrawdownPct,
	}
}

// Print writes a human readable summary of r.
func (r Result) Print(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest Result %s\n", r.Name)
	fmt.Fprintln(w, "==================================================")
	if !r.Start.IsZero() {
		fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Events:        %d\n", r.Events)
	fmt.Fprintf(w, "Executions:    %d\n", r.Executions)
	fmt.Fprintln(w)

	for _, ccy := range r.Account.Cash.Currencies() {
		fmt.Fprintf(w, "Cash %s:      %.2f\n", ccy, r.Account.Cash.Get(ccy))
	}
	for _, a := range r.Account.Assets() {
		p := r.Account.Positions[a]
		fmt.Fprintf(w, "Position:      %s %s @ %.4f (mkt %.4f)\n", a, p.Size, p.AvgPrice, p.MktPrice)
	}
	fmt.Fprintf(w, "Start Equity:  %.2f %s\n", r.StartEquity, r.Currency)
	fmt.Fprintf(w, "End Equity:    %.2f %s\n", r.EndEquity, r.Currency)
	fmt.Fprintf(w, "Net P/L:       %.2f %s\n", r.NetPL(), r.Currency)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct)
}
