package feed

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradesim/market"
)

var ErrFeedStopped = errors.New("feed stopped")

// Feed produces the events of a run into ch. Play closes ch when it
// returns. A consumer that closes ch early ends playback without error.
type Feed interface {
	Play(ctx context.Context, ch *EventChannel) error
}

// Observation is one price of one asset.
type Observation struct {
	Time time.Time
	Item market.PriceItem
}

// play sends every event of src into ch.
func play(ctx context.Context, src Source, ch *EventChannel) error {
	defer ch.Close()
	for {
		evt, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := ch.Send(ctx, evt); err != nil {
			if errors.Is(err, ErrChannelClosed) || errors.Is(err, ErrTimeframeEnd) {
				return nil
			}
			return err
		}
	}
}

// HistoricFeed holds its data in memory and can be played any number of
// times, also concurrently once it is fully built.
type HistoricFeed struct {
	mu     sync.Mutex
	obs    map[market.Asset][]Observation
	events []market.Event
}

func NewHistoricFeed() *HistoricFeed {
	return &HistoricFeed{obs: map[market.Asset][]Observation{}}
}

// Add appends observations for asset.
func (f *HistoricFeed) Add(asset market.Asset, obs ...Observation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs[asset] = append(f.obs[asset], obs...)
	f.events = nil
}

// Events returns the data grouped into events, sorted by time.
func (f *HistoricFeed) Events() []market.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = Group(f.obs)
	}
	return f.events
}

func (f *HistoricFeed) Assets() []market.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]market.Asset, 0, len(f.obs))
	for a := range f.obs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Timeframe is the time of the first and the last event.
func (f *HistoricFeed) Timeframe() (first, last time.Time) {
	events := f.Events()
	if len(events) == 0 {
		return time.Time{}, time.Time{}
	}
	return events[0].Time, events[len(events)-1].Time
}

func (f *HistoricFeed) Play(ctx context.Context, ch *EventChannel) error {
	return play(ctx, NewSliceSource(f.Events()...), ch)
}

// StreamFeed reads its sources lazily and merges them while playing. The
// sources are opened anew for every Play.
type StreamFeed struct {
	open func() ([]Source, error)
}

func NewStreamFeed(open func() ([]Source, error)) *StreamFeed {
	return &StreamFeed{open: open}
}

// NewCSVFeed streams the merged content of CSV files.
func NewCSVFeed(paths []string, opts ...CSVOption) *StreamFeed {
	return NewStreamFeed(func() ([]Source, error) {
		srcs := make([]Source, 0, len(paths))
		for _, p := range paths {
			s, err := NewCSVSource(p, opts...)
			if err != nil {
				closeAll(srcs)
				return nil, err
			}
			srcs = append(srcs, s)
		}
		return srcs, nil
	})
}

func closeAll(srcs []Source) {
	for _, s := range srcs {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func (f *StreamFeed) Play(ctx context.Context, ch *EventChannel) error {
	srcs, err := f.open()
	if err != nil {
		ch.Close()
		return err
	}
	defer closeAll(srcs)
	return play(ctx, Merge(srcs...), ch)
}

// LiveFeed forwards events published by another goroutine. Events without a
// time are stamped on arrival.
type LiveFeed struct {
	in   chan market.Event
	done chan struct{}
	once sync.Once
	now  func() time.Time
}

func NewLiveFeed(buffer int) *LiveFeed {
	if buffer < 0 {
		buffer = 0
	}
	return &LiveFeed{in: make(chan market.Event, buffer), done: make(chan struct{}), now: time.Now}
}

// Publish hands evt to the playing feed, blocking until it is taken.
func (f *LiveFeed) Publish(ctx context.Context, evt market.Event) error {
	select {
	case <-f.done:
		return ErrFeedStopped
	default:
	}
	if evt.Time.IsZero() {
		evt.Time = f.now()
	}
	select {
	case <-f.done:
		return ErrFeedStopped
	case <-ctx.Done():
		return ctx.Err()
	case f.in <- evt:
		return nil
	}
}

// Stop ends playback once the events already published are delivered.
func (f *LiveFeed) Stop() { f.once.Do(func() { close(f.done) }) }

func (f *LiveFeed) Play(ctx context.Context, ch *EventChannel) error {
	defer ch.Close()

	var last time.Time
	forward := func(evt market.Event) (bool, error) {
		if !last.IsZero() && !evt.Time.After(last) {
			return false, &OrderViolationError{Asset: firstAsset(evt), Prev: last, Got: evt.Time}
		}
		last = evt.Time
		if err := ch.Send(ctx, evt); err != nil {
			if errors.Is(err, ErrChannelClosed) || errors.Is(err, ErrTimeframeEnd) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-f.in:
			if more, err := forward(evt); !more {
				return err
			}
		case <-f.done:
			for {
				select {
				case evt := <-f.in:
					if more, err := forward(evt); !more {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

// CollectEvents plays f to the end and returns every event.
func CollectEvents(ctx context.Context, f Feed) ([]market.Event, error) {
	ch := NewEventChannel(DefaultCapacity)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.Play(gctx, ch) })

	var out []market.Event
	for {
		evt, err := ch.Receive(gctx)
		if err != nil {
			if !errors.Is(err, ErrChannelClosed) {
				ch.Close()
				if werr := g.Wait(); werr != nil {
					return out, werr
				}
				return out, err
			}
			break
		}
		out = append(out, evt)
	}
	return out, g.Wait()
}
