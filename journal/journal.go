// Package journal persists what a simulation did: every execution, the
// equity after every event and a summary per run.
package journal

import (
	"time"
)

// ExecutionRecord is one fill as booked by the ledger.
type ExecutionRecord struct {
	OrderID  string
	Symbol   string
	Exchange string
	Size     string
	Price    float64
	Currency string
	Realized float64
	Time     time.Time
}

// EquitySnapshot is the account state after one event, in the base currency.
type EquitySnapshot struct {
	Time     time.Time
	Currency string
	Cash     float64
	Equity   float64
	Exposure float64
	Realized float64
}

type Journal interface {
	RecordExecution(ExecutionRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
