package backtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/broker/sim"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/feed"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/strategies"
)

// OpenJournal opens the journal a configuration asks for. It returns nil
// for type "none". An empty runID gets a generated one; the ID used is
// returned.
func OpenJournal(jc config.JournalConfig, runID string) (journal.Journal, string, error) {
	if runID == "" {
		runID = jc.RunID
	}
	if runID == "" {
		runID = id.New()
	}

	switch jc.Type {
	case "csv":
		j, err := journal.NewCSV(jc.ExecutionsFile, jc.EquityFile)
		if err != nil {
			return nil, runID, err
		}
		return j, runID, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath, runID)
		if err != nil {
			return nil, runID, err
		}
		return j, runID, nil
	case "", "none":
		return nil, runID, nil
	}
	return nil, runID, fmt.Errorf("unknown journal type %q", jc.Type)
}

// FromConfig assembles a runner: ledger, pricing and matching engine,
// a CSV feed over the configured files and the named policy. j may be nil.
func FromConfig(cfg *config.Config, j journal.Journal, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	base := cfg.Account.Currency

	margin, err := cfg.Margin.MarginModel()
	if err != nil {
		return nil, err
	}
	l := ledger.New(base,
		ledger.WithRates(cfg.ExchangeRates()),
		ledger.WithMargin(margin),
		ledger.WithDeposit(cfg.Account.Amounts()...))

	pe, err := cfg.Pricing.Engine()
	if err != nil {
		return nil, err
	}
	eopts := []sim.EngineOption{sim.WithLogger(log)}
	if j != nil {
		eopts = append(eopts, sim.WithJournal(j))
	}
	engine := sim.NewEngine(l, pe, eopts...)

	from, to, err := cfg.Feed.Timeframe()
	if err != nil {
		return nil, err
	}
	copts := []feed.CSVOption{feed.WithCurrency(base), feed.WithRange(from, to)}
	paths := make([]string, 0, len(cfg.Feed.Files))
	for _, f := range cfg.Feed.Files {
		paths = append(paths, f.Path)
		if f.Asset.IsZero() {
			continue
		}
		a, err := f.Asset.Asset(base)
		if err != nil {
			return nil, err
		}
		copts = append(copts, feed.WithAsset(a))
	}

	sc, err := cfg.Policy.StrategyConfig(base)
	if err != nil {
		return nil, err
	}
	policy, err := strategies.ByName(cfg.Policy.Name, sc)
	if err != nil {
		return nil, err
	}

	return &Runner{
		Name:   cfg.Account.ID,
		Feed:   feed.NewCSVFeed(paths, copts...),
		Engine: engine,
		Policy: policy,
		Options: Options{
			Capacity:  cfg.Feed.Capacity,
			From:      from,
			To:        to,
			MaxEvents: cfg.Feed.MaxEvents,
		},
		Logger: log,
	}, nil
}
