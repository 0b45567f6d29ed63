package market

import (
	"sort"
	"time"
)

// Event is one instant of simulated time with every price observed at that
// instant, at most one per asset.
type Event struct {
	Time  time.Time
	Items map[Asset]PriceItem
}

func NewEvent(t time.Time, items map[Asset]PriceItem) Event {
	if items == nil {
		items = make(map[Asset]PriceItem)
	}
	return Event{Time: t, Items: items}
}

// EmptyEvent carries a time but no prices. It still advances the clock.
func EmptyEvent(t time.Time) Event { return NewEvent(t, nil) }

func (e Event) IsEmpty() bool { return len(e.Items) == 0 }

// Item returns the PriceItem for asset, if the event carries one.
func (e Event) Item(a Asset) (PriceItem, bool) {
	it, ok := e.Items[a]
	return it, ok
}

// Price returns the reference price of asset for the given type.
func (e Event) Price(a Asset, t PriceType) (float64, bool) {
	it, ok := e.Items[a]
	if !ok {
		return 0, false
	}
	return it.Price(t), true
}

// Prices returns the reference price of every asset in the event.
func (e Event) Prices(t PriceType) map[Asset]float64 {
	out := make(map[Asset]float64, len(e.Items))
	for a, it := range e.Items {
		out[a] = it.Price(t)
	}
	return out
}

// Assets returns the assets of the event sorted by symbol.
func (e Event) Assets() []Asset {
	out := make([]Asset, 0, len(e.Items))
	for a := range e.Items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
