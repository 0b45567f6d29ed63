// Package order defines the orders a policy can hand to a broker.
//
// Order is a closed set of variants: the single orders Market, Limit, Stop,
// StopLimit, Trail and TrailLimit, and the composite orders OCO, OTO and
// Bracket which combine single orders on one asset. Orders are values and
// never change after construction; the execution state of an order lives in
// the broker that runs it.
package order

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/market"
)

var (
	ErrZeroSize      = errors.New("order size must be non-zero")
	ErrAssetMismatch = errors.New("composite order legs reference different assets")
	ErrBracketSize   = errors.New("bracket exit legs must offset the entry size")
	ErrInvalidPrice  = errors.New("invalid order price")
	ErrInvalidTrail  = errors.New("trail percentage must be in (0, 1)")
	ErrMissingLeg    = errors.New("composite order leg is nil")
)

// Kind names an order variant.
type Kind string

const (
	KindMarket     Kind = "MARKET"
	KindLimit      Kind = "LIMIT"
	KindStop       Kind = "STOP"
	KindStopLimit  Kind = "STOP_LIMIT"
	KindTrail      Kind = "TRAIL"
	KindTrailLimit Kind = "TRAIL_LIMIT"
	KindOCO        Kind = "OCO"
	KindOTO        Kind = "OTO"
	KindBracket    Kind = "BRACKET"
)

// Order is implemented only by the variants in this package.
type Order interface {
	ID() string
	Asset() market.Asset
	Kind() Kind
	Tag() string
	Validate() error

	sealed()
}

// SingleOrder is an order that fills directly against a price.
type SingleOrder interface {
	Order
	Size() market.Size
	TIF() TimeInForce
	Buy() bool
}

// Option customizes a single order at construction.
type Option func(*Single)

func WithTIF(tif TimeInForce) Option { return func(s *Single) { s.tif = tif } }
func WithTag(tag string) Option { return func(s *Single) { s.tag = tag } }

// WithID overrides the generated ID. Useful for deterministic tests.
func WithID(id string) Option { return func(s *Single) { s.id = id } }

// Single holds the fields every single order shares.
type Single struct {
	id    string
	asset market.Asset
	size  market.Size
	tif   TimeInForce
	tag   string
}

func newSingle(asset market.Asset, size market.Size, opts []Option) (Single, error) {
	s := Single{id: id.New(), asset: asset, size: size, tif: GTC()}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.validate(); err != nil {
		return Single{}, err
	}
	return s, nil
}

func (s Single) ID() string { return s.id }
func (s Single) Asset() market.Asset { return s.asset }
func (s Single) Size() market.Size { return s.size }
func (s Single) TIF() TimeInForce { return s.tif }
func (s Single) Tag() string { return s.tag }
func (s Single) Buy() bool { return s.size.IsPositive() }
func (Single) sealed() {}

func (s Single) validate() error {
	if s.size.IsZero() {
		return fmt.Errorf("%s: %w", s.asset, ErrZeroSize)
	}
	if s.id == "" {
		return errors.New("order id is empty")
	}
	return nil
}

func validPrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, p)
	}
	return nil
}

func validTrail(pct float64) error {
	if math.IsNaN(pct) || pct <= 0 || pct >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidTrail, pct)
	}
	return nil
}

// Market fills at the next available price.
type Market struct{ Single }

func NewMarket(asset market.Asset, size market.Size, opts ...Option) (Market, error) {
	s, err := newSingle(asset, size, opts)
	return Market{s}, err
}

func (Market) Kind() Kind { return KindMarket }
func (o Market) Validate() error { return o.validate() }
func (o Market) String() string { return fmt.Sprintf("MARKET %s %s", o.size, o.asset) }

// Limit fills only at the limit price or better.
type Limit struct {
	Single
	Limit float64
}

func NewLimit(asset market.Asset, size market.Size, limit float64, opts ...Option) (Limit, error) {
	s, err := newSingle(asset, size, opts)
	if err != nil {
		return Limit{}, err
	}
	o := Limit{Single: s, Limit: limit}
	return o, o.Validate()
}

func (Limit) Kind() Kind { return KindLimit }

func (o Limit) Validate() error {
	if err := o.validate(); err != nil {
		return err
	}
	return validPrice(o.Limit)
}

func (o Limit) String() string { return fmt.Sprintf("LIMIT %s %s @ %v", o.size, o.asset, o.Limit) }

// Stop becomes a market order once the price crosses Stop against the
// position: upwards for a buy, downwards for a sell.
type Stop struct {
	Single
	Stop float64
}

func NewStop(asset market.Asset, size market.Size, stop float64, opts ...Option) (Stop, error) {
	s, err := newSingle(asset, size, opts)
	if err != nil {
		return Stop{}, err
	}
	o := Stop{Single: s, Stop: stop}
	return o, o.Validate()
}

func (Stop) Kind() Kind { return KindStop }

func (o Stop) Validate() error {
	if err := o.validate(); err != nil {
		return err
	}
	return validPrice(o.Stop)
}

func (o Stop) String() string { return fmt.Sprintf("STOP %s %s @ %v", o.size, o.asset, o.Stop) }

// StopLimit becomes a limit order at Limit once Stop is crossed.
type StopLimit struct {
	Single
	Stop  float64
	Limit float64
}

func NewStopLimit(asset market.Asset, size market.Size, stop, limit float64, opts ...Option) (StopLimit, error) {
	s, err := newSingle(asset, size, opts)
	if err != nil {
		return StopLimit{}, err
	}
	o := StopLimit{Single: s, Stop: stop, Limit: limit}
	return o, o.Validate()
}

func (StopLimit) Kind() Kind { return KindStopLimit }

func (o StopLimit) Validate() error {
	if err := o.validate(); err != nil {
		return err
	}
	if err := validPrice(o.Stop); err != nil {
		return err
	}
	return validPrice(o.Limit)
}

// Trail is a stop that follows the best price seen since acceptance at a
// distance of TrailPercentage (0.02 means 2%).
type Trail struct {
	Single
	TrailPercentage float64
}

func NewTrail(asset market.Asset, size market.Size, pct float64, opts ...Option) (Trail, error) {
	s, err := newSingle(asset, size, opts)
	if err != nil {
		return Trail{}, err
	}
	o := Trail{Single: s, TrailPercentage: pct}
	return o, o.Validate()
}

func (Trail) Kind() Kind { return KindTrail }

func (o Trail) Validate() error {
	if err := o.validate(); err != nil {
		return err
	}
	return validTrail(o.TrailPercentage)
}

// TrailLimit is a Trail that, once triggered, becomes a limit order at the
// trigger price offset by LimitOffset (in price units, added for buys and
// subtracted for sells).
type TrailLimit struct {
	Single
	TrailPercentage float64
	LimitOffset     float64
}

func NewTrailLimit(asset market.Asset, size market.Size, pct, offset float64, opts ...Option) (TrailLimit, error) {
	s, err := newSingle(asset, size, opts)
	if err != nil {
		return TrailLimit{}, err
	}
	o := TrailLimit{Single: s, TrailPercentage: pct, LimitOffset: offset}
	return o, o.Validate()
}

func (TrailLimit) Kind() Kind { return KindTrailLimit }

func (o TrailLimit) Validate() error {
	if err := o.validate(); err != nil {
		return err
	}
	if math.IsNaN(o.LimitOffset) || o.LimitOffset < 0 {
		return fmt.Errorf("%w: limit offset %v", ErrInvalidPrice, o.LimitOffset)
	}
	return validTrail(o.TrailPercentage)
}
