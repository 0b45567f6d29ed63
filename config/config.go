package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/pricing"
	"github.com/rustyeddy/tradesim/strategies"
)

// Config represents the complete run configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Pricing PricingConfig `json:"pricing" yaml:"pricing"`
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Policy  PolicyConfig  `json:"policy" yaml:"policy"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Rates   []RateConfig  `json:"rates,omitempty" yaml:"rates,omitempty"`
	Margin  MarginConfig  `json:"margin" yaml:"margin"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string             `json:"id" yaml:"id"`
	Currency string             `json:"currency" yaml:"currency"`
	Deposits map[string]float64 `json:"deposits" yaml:"deposits"` // currency -> amount
}

// Amounts returns the deposits sorted by currency.
func (a AccountConfig) Amounts() []market.Amount {
	out := make([]market.Amount, 0, len(a.Deposits))
	for ccy, v := range a.Deposits {
		out = append(out, market.Amount{Currency: strings.ToUpper(ccy), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// PricingConfig selects the execution price model
type PricingConfig struct {
	Model       string  `json:"model" yaml:"model"` // "nocost" or "spread"
	BasisPoints float64 `json:"bps,omitempty" yaml:"bps,omitempty"`
	PriceType   string  `json:"price_type,omitempty" yaml:"price_type,omitempty"`
}

func (p PricingConfig) Engine() (pricing.Engine, error) {
	pt, err := market.ParsePriceType(p.PriceType)
	if err != nil {
		return nil, err
	}
	return pricing.ByName(p.Model, p.BasisPoints, pt)
}

// AssetConfig describes an instrument
type AssetConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Exchange   string  `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Type       string  `json:"type,omitempty" yaml:"type,omitempty"` // stock (default), forex, crypto, future, option
	Currency   string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

func (a AssetConfig) IsZero() bool { return a.Symbol == "" }

// Asset converts the description into a market.Asset. The currency
// defaults to fallback.
func (a AssetConfig) Asset(fallback string) (market.Asset, error) {
	if a.Symbol == "" {
		return market.Asset{}, fmt.Errorf("asset symbol is required")
	}
	ccy := a.Currency
	if ccy == "" {
		ccy = fallback
	}

	var asset market.Asset
	switch market.AssetType(strings.ToLower(a.Type)) {
	case "", market.Stock:
		asset = market.NewStock(a.Symbol, ccy)
	case market.Crypto:
		asset = market.NewCrypto(a.Symbol, ccy)
	case market.Forex:
		fx, err := market.NewForex(a.Symbol)
		if err != nil {
			return market.Asset{}, err
		}
		asset = fx
	case market.Future, market.Option:
		asset = market.Asset{Symbol: strings.ToUpper(a.Symbol), Type: market.AssetType(strings.ToLower(a.Type)), Currency: ccy, Multiplier: 1}
	default:
		return market.Asset{}, fmt.Errorf("unknown asset type %q", a.Type)
	}
	asset.Exchange = a.Exchange
	if a.Multiplier > 0 {
		asset.Multiplier = a.Multiplier
	}
	return asset, nil
}

// FeedConfig lists the data files of a run
type FeedConfig struct {
	Files     []FileConfig `json:"files" yaml:"files"`
	From      string       `json:"from,omitempty" yaml:"from,omitempty"` // RFC3339
	To        string       `json:"to,omitempty" yaml:"to,omitempty"`     // RFC3339, exclusive
	Capacity  int          `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	MaxEvents int          `json:"max_events,omitempty" yaml:"max_events,omitempty"`
}

// FileConfig is one CSV file. Asset is required when the file has no
// symbol column.
type FileConfig struct {
	Path  string      `json:"path" yaml:"path"`
	Asset AssetConfig `json:"asset,omitempty" yaml:"asset,omitempty"`
}

// Timeframe parses From and To. Empty bounds are zero.
func (f FeedConfig) Timeframe() (from, to time.Time, err error) {
	if f.From != "" {
		if from, err = time.Parse(time.RFC3339, f.From); err != nil {
			return from, to, fmt.Errorf("feed.from: %w", err)
		}
	}
	if f.To != "" {
		if to, err = time.Parse(time.RFC3339, f.To); err != nil {
			return from, to, fmt.Errorf("feed.to: %w", err)
		}
	}
	return from, to, nil
}

// PolicyConfig contains policy parameters
type PolicyConfig struct {
	Name          string      `json:"name" yaml:"name"`
	Asset         AssetConfig `json:"asset,omitempty" yaml:"asset,omitempty"`
	Size          string      `json:"size,omitempty" yaml:"size,omitempty"`
	TakeProfitPct float64     `json:"take_profit_pct,omitempty" yaml:"take_profit_pct,omitempty"`
	StopLossPct   float64     `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`
	RiskPct       float64     `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`
	FastPeriod    int         `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod    int         `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
}

// StrategyConfig converts the section for strategies.ByName.
func (p PolicyConfig) StrategyConfig(currency string) (strategies.Config, error) {
	cfg := strategies.Config{
		TakeProfitPct: p.TakeProfitPct,
		StopLossPct:   p.StopLossPct,
		RiskPct:       p.RiskPct,
		FastPeriod:    p.FastPeriod,
		SlowPeriod:    p.SlowPeriod,
	}
	if !p.Asset.IsZero() {
		a, err := p.Asset.Asset(currency)
		if err != nil {
			return cfg, fmt.Errorf("policy.asset: %w", err)
		}
		cfg.Asset = a
	}
	if p.Size != "" {
		s, err := market.SizeFromString(p.Size)
		if err != nil {
			return cfg, fmt.Errorf("policy.size: %w", err)
		}
		cfg.Size = s
	}
	return cfg, nil
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type           string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	ExecutionsFile string `json:"executions_file,omitempty" yaml:"executions_file,omitempty"`
	EquityFile     string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath         string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RunID          string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// RateConfig is one fixed exchange rate: 1 From = Rate To.
type RateConfig struct {
	From string  `json:"from" yaml:"from"`
	To   string  `json:"to" yaml:"to"`
	Rate float64 `json:"rate" yaml:"rate"`
}

// ExchangeRates returns the fixed rate table, or ledger.NoRates when none
// are configured.
func (c *Config) ExchangeRates() ledger.ExchangeRates {
	if len(c.Rates) == 0 {
		return ledger.NoRates{}
	}
	r := ledger.FixedRates{}
	for _, rc := range c.Rates {
		r.Set(strings.ToUpper(rc.From), strings.ToUpper(rc.To), rc.Rate)
	}
	return r
}

// MarginConfig selects how buying power is computed
type MarginConfig struct {
	Model       string  `json:"model" yaml:"model"` // "cash" or "leveraged"
	Leverage    float64 `json:"leverage,omitempty" yaml:"leverage,omitempty"`
	MinimumCash float64 `json:"minimum_cash,omitempty" yaml:"minimum_cash,omitempty"`
}

func (m MarginConfig) MarginModel() (ledger.MarginModel, error) {
	switch strings.ToLower(m.Model) {
	case "", "cash":
		return ledger.CashOnly{MinimumCash: m.MinimumCash}, nil
	case "leveraged":
		if m.Leverage <= 0 {
			return nil, fmt.Errorf("margin.leverage must be positive")
		}
		return ledger.Leveraged{Leverage: m.Leverage}, nil
	}
	return nil, fmt.Errorf("unknown margin model %q", m.Model)
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if len(c.Account.Deposits) == 0 {
		return fmt.Errorf("account.deposits must not be empty")
	}
	for ccy, v := range c.Account.Deposits {
		if v <= 0 {
			return fmt.Errorf("account.deposits[%s] must be positive", ccy)
		}
	}

	if _, err := c.Pricing.Engine(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}

	if len(c.Feed.Files) == 0 {
		return fmt.Errorf("feed.files must not be empty")
	}
	for i, f := range c.Feed.Files {
		if f.Path == "" {
			return fmt.Errorf("feed.files[%d].path is required", i)
		}
		if !f.Asset.IsZero() {
			if _, err := f.Asset.Asset(c.Account.Currency); err != nil {
				return fmt.Errorf("feed.files[%d].asset: %w", i, err)
			}
		}
	}
	from, to, err := c.Feed.Timeframe()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("feed.from must be before feed.to")
	}
	if c.Feed.Capacity < 0 || c.Feed.MaxEvents < 0 {
		return fmt.Errorf("feed.capacity and feed.max_events must not be negative")
	}

	sc, err := c.Policy.StrategyConfig(c.Account.Currency)
	if err != nil {
		return err
	}
	if _, err := strategies.ByName(c.Policy.Name, sc); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.ExecutionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal executions_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "", "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	for _, r := range c.Rates {
		if r.From == "" || r.To == "" || r.Rate <= 0 {
			return fmt.Errorf("rates: invalid entry %s/%s=%v", r.From, r.To, r.Rate)
		}
	}

	if _, err := c.Margin.MarginModel(); err != nil {
		return err
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Deposits: map[string]float64{"USD": 100000},
		},
		Pricing: PricingConfig{
			Model:       "spread",
			BasisPoints: pricing.DefaultSpreadBips,
		},
		Feed: FeedConfig{
			Files: []FileConfig{{
				Path:  "./data/AAPL.csv",
				Asset: AssetConfig{Symbol: "AAPL", Currency: "USD"},
			}},
			Capacity: 10,
		},
		Policy: PolicyConfig{
			Name:          "open-once",
			Asset:         AssetConfig{Symbol: "AAPL", Currency: "USD"},
			Size:          "100",
			TakeProfitPct: 0.05,
			StopLossPct:   0.02,
		},
		Journal: JournalConfig{
			Type:           "csv",
			ExecutionsFile: "./executions.csv",
			EquityFile:     "./equity.csv",
		},
		Margin: MarginConfig{Model: "cash"},
		Log:    LogConfig{Level: "info"},
	}
}
