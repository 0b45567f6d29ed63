package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceQuotesGroupedByTime(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "quotes.csv", `time,symbol,bid,ask
2024-01-02T09:30:00Z,AAPL,99.5,100.5

2024-01-02T09:30:00Z,MSFT,199,201
2024-01-02T09:31:00Z,AAPL,100,101
`)
	s, err := NewCSVSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got := drain(t, s)
	require.Len(t, got, 2)
	assert.Equal(t, at(0), got[0].Time)
	assert.Len(t, got[0].Items, 2)
	assert.Equal(t, market.PriceQuote{Bid: 99.5, Ask: 100.5}, got[0].Items[aapl])
	assert.Equal(t, at(1), got[1].Time)
}

func TestCSVSourceBarsAndTrades(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "mixed.csv", `2024-01-02T09:30:00Z,EUR_USD,1.1,1.2,1.0,1.15,1000
2024-01-02T09:31:00.5Z,EUR_USD,1.16
`)
	eurusd, err := market.NewForex("EUR_USD")
	require.NoError(t, err)

	s, err := NewCSVSource(path, WithAsset(eurusd))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got := drain(t, s)
	require.Len(t, got, 2)
	assert.Equal(t, market.PriceBar{Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Vol: 1000}, got[0].Items[eurusd])
	assert.Equal(t, market.TradePrice{Value: 1.16}, got[1].Items[eurusd])
}

func TestCSVSourceRangeAndCurrency(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "sap.csv", `2024-01-02T09:29:00Z,SAP,10
2024-01-02T09:30:00Z,SAP,11
2024-01-02T09:31:00Z,SAP,12
`)
	s, err := NewCSVSource(path, WithCurrency("EUR"), WithRange(at(0), at(1)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got := drain(t, s)
	require.Len(t, got, 1)
	p, ok := got[0].Price(market.NewStock("SAP", "EUR"), market.DefaultPrice)
	require.True(t, ok)
	assert.Equal(t, 11.0, p)
}

func TestCSVSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := writeFile(t, "bad.csv", "2024-01-02T09:30:00Z,AAPL,abc\n")
	s, err := NewCSVSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, _, err = s.Next()
	assert.ErrorContains(t, err, "bad.csv:1")

	path = writeFile(t, "badtime.csv", "yesterday,AAPL,1\n")
	s2, err := NewCSVSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	_, _, err = s2.Next()
	assert.ErrorContains(t, err, "bad time")
}
