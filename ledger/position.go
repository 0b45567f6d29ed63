package ledger

import (
	"math"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Position is the holding in one asset. Size is signed: positive long,
// negative short. AvgPrice is the weighted average entry price in the asset
// currency and MktPrice the last observed price.
type Position struct {
	Asset      market.Asset
	Size       market.Size
	AvgPrice   float64
	MktPrice   float64
	LastUpdate time.Time

	// Realized is the P&L realized on this asset since the position was
	// first opened, in the asset currency.
	Realized float64
}

func (p Position) IsLong() bool { return p.Size.IsPositive() }
func (p Position) IsShort() bool { return p.Size.IsNegative() }
func (p Position) Open() bool { return !p.Size.IsZero() }

// MarketValue is size × market price × multiplier; negative for shorts.
func (p Position) MarketValue() float64 {
	return p.Size.Float64() * p.MktPrice * p.Asset.ContractSize()
}

// Exposure is the absolute market value.
func (p Position) Exposure() float64 { return math.Abs(p.MarketValue()) }

// TotalCost is size × average price × multiplier.
func (p Position) TotalCost() float64 {
	return p.Size.Float64() * p.AvgPrice * p.Asset.ContractSize()
}

func (p Position) UnrealizedPNL() float64 {
	return p.Size.Float64() * (p.MktPrice - p.AvgPrice) * p.Asset.ContractSize()
}

// apply books a fill against the position and returns the updated position
// and the P&L the fill realized.
//
//   - flat or same direction: the size grows and the average price is
//     the size-weighted average of old and new.
//   - opposite direction, not crossing zero: the closed part realizes
//     closed × (price − avg); the average price is unchanged.
//   - crossing zero: the whole old size is closed first and the remainder
//     opens a new position at the fill price.
func (p Position) apply(fill market.Size, price float64, t time.Time) (Position, float64) {
	mult := p.Asset.ContractSize()
	next := p
	next.MktPrice = price
	next.LastUpdate = t

	switch {
	case p.Size.IsZero() || p.Size.SameDirection(fill):
		newSize := p.Size.Add(fill)
		old := p.Size.Float64()
		add := fill.Float64()
		next.AvgPrice = (old*p.AvgPrice + add*price) / (old + add)
		next.Size = newSize
		return next, 0

	case fill.Abs().Cmp(p.Size.Abs()) <= 0:
		closed := fill.Neg().Float64()
		realized := closed * (price - p.AvgPrice) * mult
		next.Size = p.Size.Add(fill)
		next.Realized += realized
		if next.Size.IsZero() {
			next.AvgPrice = 0
		}
		return next, realized

	default:
		realized := p.Size.Float64() * (price - p.AvgPrice) * mult
		next.Size = p.Size.Add(fill)
		next.AvgPrice = price
		next.Realized += realized
		return next, realized
	}
}
