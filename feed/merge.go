package feed

import (
	"fmt"
	"time"

	"github.com/tidwall/btree"

	"github.com/rustyeddy/tradesim/market"
)

// OrderViolationError reports a stream that went back in time, or did not
// move forward. It is fatal for the run.
type OrderViolationError struct {
	Source int
	Asset  market.Asset
	Prev   time.Time
	Got    time.Time
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("feed: source %d (%s): event at %s does not follow %s",
		e.Source, e.Asset, e.Got.Format(time.RFC3339Nano), e.Prev.Format(time.RFC3339Nano))
}

type head struct {
	evt market.Event
	src int
}

func headLess(a, b head) bool {
	if a.evt.Time.Equal(b.evt.Time) {
		return a.src < b.src
	}
	return a.evt.Time.Before(b.evt.Time)
}

// MergedSource combines several sources into one stream. All events of the
// same instant, across sources, are emitted as one event. When two sources
// price the same asset at the same instant the later source wins.
type MergedSource struct {
	sources []Source
	queue   *btree.BTreeG[head]
	prev    []time.Time
	seen    []bool

	primed  bool
	emitted bool
	last    time.Time
}

func Merge(sources ...Source) *MergedSource {
	return &MergedSource{
		sources: sources,
		queue:   btree.NewBTreeGOptions(headLess, btree.Options{NoLocks: true}),
		prev:    make([]time.Time, len(sources)),
		seen:    make([]bool, len(sources)),
	}
}

func firstAsset(evt market.Event) market.Asset {
	if assets := evt.Assets(); len(assets) > 0 {
		return assets[0]
	}
	return market.Asset{}
}

// pull reads the next event of source i into the queue.
func (m *MergedSource) pull(i int) error {
	evt, ok, err := m.sources[i].Next()
	if err != nil {
		return fmt.Errorf("feed: source %d: %w", i, err)
	}
	if !ok {
		return nil
	}
	if m.seen[i] && !evt.Time.After(m.prev[i]) {
		return &OrderViolationError{Source: i, Asset: firstAsset(evt), Prev: m.prev[i], Got: evt.Time}
	}
	m.prev[i] = evt.Time
	m.seen[i] = true
	m.queue.Set(head{evt: evt, src: i})
	return nil
}

func (m *MergedSource) Next() (market.Event, bool, error) {
	if !m.primed {
		m.primed = true
		for i := range m.sources {
			if err := m.pull(i); err != nil {
				return market.Event{}, false, err
			}
		}
	}

	first, ok := m.queue.PopMin()
	if !ok {
		return market.Event{}, false, nil
	}
	t := first.evt.Time
	items := make(map[market.Asset]market.PriceItem, len(first.evt.Items))
	for a, it := range first.evt.Items {
		items[a] = it
	}
	drained := []int{first.src}

	for {
		h, ok := m.queue.Min()
		if !ok || !h.evt.Time.Equal(t) {
			break
		}
		m.queue.PopMin()
		for a, it := range h.evt.Items {
			items[a] = it
		}
		drained = append(drained, h.src)
	}

	for _, i := range drained {
		if err := m.pull(i); err != nil {
			return market.Event{}, false, err
		}
	}

	if m.emitted && !t.After(m.last) {
		return market.Event{}, false, &OrderViolationError{Source: first.src, Asset: firstAsset(first.evt), Prev: m.last, Got: t}
	}
	m.emitted = true
	m.last = t
	return market.NewEvent(t, items), true, nil
}
