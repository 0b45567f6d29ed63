package pricing

import (
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

var ErrPriceNotFound = errors.New("price not found")

// Quote is the last observation seen for an asset.
type Quote struct {
	Item market.PriceItem
	Time time.Time
}

// PriceStore keeps the most recent PriceItem per asset.
type PriceStore struct {
	mu     sync.RWMutex
	quotes map[market.Asset]Quote
}

func NewPriceStore() *PriceStore {
	return &PriceStore{quotes: make(map[market.Asset]Quote)}
}

func (ps *PriceStore) Set(a market.Asset, item market.PriceItem, t time.Time) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.quotes[a] = Quote{Item: item, Time: t}
}

// Update records every item of the event.
func (ps *PriceStore) Update(evt market.Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for a, it := range evt.Items {
		ps.quotes[a] = Quote{Item: it, Time: evt.Time}
	}
}

func (ps *PriceStore) Get(a market.Asset) (Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	q, ok := ps.quotes[a]
	if !ok {
		return Quote{}, ErrPriceNotFound
	}
	return q, nil
}

// Price returns the last reference price of a.
func (ps *PriceStore) Price(a market.Asset, pt market.PriceType) (float64, error) {
	q, err := ps.Get(a)
	if err != nil {
		return 0, err
	}
	return q.Item.Price(pt), nil
}

func (ps *PriceStore) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.quotes)
}
