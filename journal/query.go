package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// GetRun returns the summary of a run recorded in the same database.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var r RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, created, policy, dataset, start_time, end_time, events, executions,
		       currency, start_equity, end_equity, max_dd_pct
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID,
		&r.Created,
		&r.Policy,
		&r.Dataset,
		&r.Start,
		&r.End,
		&r.Events,
		&r.Executions,
		&r.Currency,
		&r.StartEquity,
		&r.EndEquity,
		&r.MaxDrawdownPct,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListExecutions returns the executions of a run in booking order.
func (j *SQLite) ListExecutions(runID string) ([]ExecutionRecord, error) {
	rows, err := j.db.Query(`
		SELECT order_id, symbol, exchange, size, price, currency, realized, time
		FROM executions
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		if err := rows.Scan(
			&rec.OrderID,
			&rec.Symbol,
			&rec.Exchange,
			&rec.Size,
			&rec.Price,
			&rec.Currency,
			&rec.Realized,
			&rec.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns the equity snapshots of a run within [start, end).
func (j *SQLite) ListEquityBetween(runID string, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, currency, cash, equity, exposure, realized
		FROM equity
		WHERE run_id = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, runID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.Time,
			&rec.Currency,
			&rec.Cash,
			&rec.Equity,
			&rec.Exposure,
			&rec.Realized,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
