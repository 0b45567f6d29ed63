package order

import (
	"fmt"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/market"
)

type composite struct {
	id  string
	tag string
}

func (c composite) ID() string { return c.id }
func (c composite) Tag() string { return c.tag }
func (composite) sealed() {}

func sameAsset(legs ...SingleOrder) error {
	for _, l := range legs {
		if l == nil {
			return ErrMissingLeg
		}
	}
	first := legs[0].Asset()
	for _, l := range legs[1:] {
		if !l.Asset().Equal(first) {
			return fmt.Errorf("%w: %s and %s", ErrAssetMismatch, first, l.Asset())
		}
	}
	return nil
}

func validateLegs(legs ...SingleOrder) error {
	if err := sameAsset(legs...); err != nil {
		return err
	}
	for _, l := range legs {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OCO (one-cancels-other) runs two orders; the first to fill cancels the other.
type OCO struct {
	composite
	First  SingleOrder
	Second SingleOrder
}

func NewOCO(first, second SingleOrder) (OCO, error) {
	o := OCO{composite: composite{id: id.New()}, First: first, Second: second}
	return o, o.Validate()
}

func (o OCO) Asset() market.Asset { return o.First.Asset() }
func (OCO) Kind() Kind { return KindOCO }
func (o OCO) Validate() error { return validateLegs(o.First, o.Second) }

// OTO (one-triggers-other) keeps Secondary dormant until Primary completes.
type OTO struct {
	composite
	Primary   SingleOrder
	Secondary SingleOrder
}

func NewOTO(primary, secondary SingleOrder) (OTO, error) {
	o := OTO{composite: composite{id: id.New()}, Primary: primary, Secondary: secondary}
	return o, o.Validate()
}

func (o OTO) Asset() market.Asset { return o.Primary.Asset() }
func (OTO) Kind() Kind { return KindOTO }
func (o OTO) Validate() error { return validateLegs(o.Primary, o.Secondary) }

// Bracket opens a position with Entry and then closes it with whichever of
// TakeProfit and StopLoss fills first. Both exit legs must have exactly the
// opposite size of the entry.
type Bracket struct {
	composite
	Entry      SingleOrder
	TakeProfit SingleOrder
	StopLoss   SingleOrder
}

func NewBracket(entry, takeProfit, stopLoss SingleOrder) (Bracket, error) {
	o := Bracket{composite: composite{id: id.New()}, Entry: entry, TakeProfit: takeProfit, StopLoss: stopLoss}
	return o, o.Validate()
}

func (o Bracket) Asset() market.Asset { return o.Entry.Asset() }
func (Bracket) Kind() Kind { return KindBracket }

func (o Bracket) Validate() error {
	if err := validateLegs(o.Entry, o.TakeProfit, o.StopLoss); err != nil {
		return err
	}
	exit := o.Entry.Size().Neg()
	if !o.TakeProfit.Size().Equal(exit) || !o.StopLoss.Size().Equal(exit) {
		return fmt.Errorf("%w: entry %s, take-profit %s, stop-loss %s",
			ErrBracketSize, o.Entry.Size(), o.TakeProfit.Size(), o.StopLoss.Size())
	}
	return nil
}

// NewMarketBracket builds the common bracket: a market entry, a limit take
// profit and a stop loss, the exits given as prices.
func NewMarketBracket(asset market.Asset, size market.Size, takeProfit, stopLoss float64) (Bracket, error) {
	entry, err := NewMarket(asset, size)
	if err != nil {
		return Bracket{}, err
	}
	tp, err := NewLimit(asset, size.Neg(), takeProfit)
	if err != nil {
		return Bracket{}, fmt.Errorf("take profit: %w", err)
	}
	sl, err := NewStop(asset, size.Neg(), stopLoss)
	if err != nil {
		return Bracket{}, fmt.Errorf("stop loss: %w", err)
	}
	return NewBracket(entry, tp, sl)
}

// Legs returns the single orders a composite is made of, or the order
// itself for a single order.
func Legs(o Order) []SingleOrder {
	switch v := o.(type) {
	case OCO:
		return []SingleOrder{v.First, v.Second}
	case OTO:
		return []SingleOrder{v.Primary, v.Secondary}
	case Bracket:
		return []SingleOrder{v.Entry, v.TakeProfit, v.StopLoss}
	case SingleOrder:
		return []SingleOrder{v}
	}
	return nil
}
