package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite writes the records of one run, identified by its run ID, into a
// database that may hold many runs.
type SQLite struct {
	db    *sql.DB
	runID string
	seq   int
}

func NewSQLite(path, runID string) (*SQLite, error) {
	if runID == "" {
		return nil, fmt.Errorf("sqlite journal: run id is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, runID: runID}, nil
}

func (j *SQLite) RunID() string { return j.runID }

func (j *SQLite) RecordExecution(e ExecutionRecord) error {
	j.seq++
	_, err := j.db.Exec(`
		INSERT INTO executions
		(run_id, seq, order_id, symbol, exchange, size, price, currency, realized, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, j.seq, e.OrderID, e.Symbol, e.Exchange, e.Size,
		e.Price, e.Currency, e.Realized, e.Time,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, currency, cash, equity, exposure, realized)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.runID, e.Time, e.Currency, e.Cash, e.Equity, e.Exposure, e.Realized,
	)
	return err
}

// RecordRun stores the summary of the run. Recording the same run twice
// replaces the first summary.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, policy, dataset, start_time, end_time, events, executions,
		 currency, start_equity, end_equity, max_dd_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, r.Created, r.Policy, r.Dataset, r.Start, r.End, r.Events, r.Executions,
		r.Currency, r.StartEquity, r.EndEquity, r.MaxDrawdownPct,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
