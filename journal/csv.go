package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	executionHeader = []string{"time", "order_id", "symbol", "exchange", "size", "price", "currency", "realized"}
	equityHeader    = []string{"time", "currency", "cash", "equity", "exposure", "realized"}
)

type CSVJournal struct {
	executions *csv.Writer
	equity     *csv.Writer
	xf, ef     *os.File
}

func NewCSV(executionsPath, equityPath string) (*CSVJournal, error) {
	xf, err := os.Create(executionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = xf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(xf), csv.NewWriter(ef), xf, ef}
	if err := j.write(j.executions, executionHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordExecution(e ExecutionRecord) error {
	return j.write(j.executions, []string{
		e.Time.Format(time.RFC3339Nano),
		e.OrderID,
		e.Symbol,
		e.Exchange,
		e.Size,
		f(e.Price),
		e.Currency,
		f(e.Realized),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.Format(time.RFC3339Nano),
		e.Currency,
		f(e.Cash),
		f(e.Equity),
		f(e.Exposure),
		f(e.Realized),
	})
}

func (j *CSVJournal) Close() error {
	j.executions.Flush()
	if err := j.executions.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.xf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
