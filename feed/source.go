package feed

import (
	"sort"

	"github.com/rustyeddy/tradesim/market"
)

// Source yields the events of one stream in strictly increasing time. Next
// returns ok=false at the end of the stream.
type Source interface {
	Next() (evt market.Event, ok bool, err error)
}

// SliceSource plays events held in memory.
type SliceSource struct {
	events []market.Event
	i      int
}

func NewSliceSource(events ...market.Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next() (market.Event, bool, error) {
	if s.i >= len(s.events) {
		return market.Event{}, false, nil
	}
	evt := s.events[s.i]
	s.i++
	return evt, true, nil
}

// Reset rewinds the source to the first event.
func (s *SliceSource) Reset() { s.i = 0 }

// Group turns per-asset observations into events, one per distinct time,
// sorted by time.
func Group(obs map[market.Asset][]Observation) []market.Event {
	byTime := map[int64]market.Event{}
	for asset, list := range obs {
		for _, o := range list {
			k := o.Time.UnixNano()
			evt, ok := byTime[k]
			if !ok {
				evt = market.NewEvent(o.Time, nil)
				byTime[k] = evt
			}
			evt.Items[asset] = o.Item
		}
	}

	out := make([]market.Event, 0, len(byTime))
	for _, evt := range byTime {
		out = append(out, evt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
