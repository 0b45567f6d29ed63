package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// CSVSource reads price rows from a CSV file:
//
//	time,symbol,price
//	time,symbol,bid,ask
//	time,symbol,open,high,low,close,volume
//
// giving trades, quotes and bars respectively. time is RFC3339 or
// RFC3339Nano. Rows with the same time are grouped into one event, so the
// file must be sorted by time. A header row ("time,...") is allowed and
// empty or short rows are skipped.
type CSVSource struct {
	f    *os.File
	r    *csv.Reader
	name string

	assets   map[string]market.Asset
	currency string
	from     time.Time
	to       time.Time

	sawFirst bool
	pending  *row
	done     bool
}

type row struct {
	t     time.Time
	asset market.Asset
	item  market.PriceItem
}

type CSVOption func(*CSVSource)

// WithAsset maps rows whose symbol matches a.Symbol to a.
func WithAsset(a market.Asset) CSVOption {
	return func(s *CSVSource) { s.assets[a.Symbol] = a }
}

// WithCurrency sets the currency of symbols without an explicit asset. They
// are read as stocks. The default is USD.
func WithCurrency(ccy string) CSVOption {
	return func(s *CSVSource) { s.currency = ccy }
}

// WithRange keeps only rows in [from, to). A zero bound is open.
func WithRange(from, to time.Time) CSVOption {
	return func(s *CSVSource) {
		s.from = from
		s.to = to
	}
}

func NewCSVSource(path string, opts ...CSVOption) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	s := &CSVSource{f: f, r: r, name: path, assets: map[string]market.Asset{}, currency: "USD"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CSVSource) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

func (s *CSVSource) Next() (market.Event, bool, error) {
	first := s.pending
	s.pending = nil
	if first == nil {
		r, ok, err := s.readRow()
		if err != nil || !ok {
			return market.Event{}, false, err
		}
		first = r
	}

	evt := market.NewEvent(first.t, nil)
	evt.Items[first.asset] = first.item
	for {
		r, ok, err := s.readRow()
		if err != nil {
			return market.Event{}, false, err
		}
		if !ok {
			break
		}
		if !r.t.Equal(first.t) {
			s.pending = r
			break
		}
		evt.Items[r.asset] = r.item
	}
	return evt, true, nil
}

func (s *CSVSource) readRow() (*row, bool, error) {
	for !s.done {
		rec, err := s.r.Read()
		if err == io.EOF {
			s.done = true
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", s.name, err)
		}
		if len(rec) == 0 {
			continue
		}

		// Allow a single header row
		if !s.sawFirst {
			s.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}

		r, ok, err := s.parse(rec)
		if err != nil {
			line, _ := s.r.FieldPos(0)
			return nil, false, fmt.Errorf("%s:%d: %w", s.name, line, err)
		}
		if !ok || !inRange(r.t, s.from, s.to) {
			continue
		}
		return r, true, nil
	}
	return nil, false, nil
}

func (s *CSVSource) asset(symbol string) market.Asset {
	if a, ok := s.assets[symbol]; ok {
		return a
	}
	return market.NewStock(symbol, s.currency)
}

func (s *CSVSource) parse(rec []string) (*row, bool, error) {
	if len(rec) < 3 {
		return nil, false, nil
	}

	ts := strings.TrimSpace(rec[0])
	if ts == "" {
		return nil, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return nil, false, err
	}

	symbol := strings.TrimSpace(rec[1])
	if symbol == "" {
		return nil, false, nil
	}

	vals := make([]float64, 0, len(rec)-2)
	for _, field := range rec[2:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, false, fmt.Errorf("bad number %q: %w", field, err)
		}
		vals = append(vals, v)
	}

	var item market.PriceItem
	switch {
	case len(vals) >= 5:
		item = market.PriceBar{Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Vol: vals[4]}
	case len(vals) >= 2:
		item = market.PriceQuote{Bid: vals[0], Ask: vals[1]}
	default:
		item = market.TradePrice{Value: vals[0]}
	}
	return &row{t: t, asset: s.asset(symbol), item: item}, true, nil
}

func parseTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
