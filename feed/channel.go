// Package feed plays market events into a bounded channel.
//
// A Feed is the producer side of a run: it pushes events in time order into
// an EventChannel, blocking whenever the consumer falls behind. The consumer
// may close the channel at any time to stop playback; a producer blocked in
// Send is released at once.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

var (
	ErrChannelClosed = errors.New("event channel closed")
	ErrTimeframeEnd  = errors.New("event after end of timeframe")
)

const DefaultCapacity = 10

// EventChannel is a bounded queue of events between one producer and one
// consumer.
type EventChannel struct {
	ch   chan market.Event
	done chan struct{}
	once sync.Once

	from time.Time
	to   time.Time
}

type ChannelOption func(*EventChannel)

// WithTimeframe restricts the channel to events in [from, to). Events before
// from are dropped by Send; the first event at or after to closes the
// channel. A zero bound is open.
func WithTimeframe(from, to time.Time) ChannelOption {
	return func(c *EventChannel) {
		c.from = from
		c.to = to
	}
}

func NewEventChannel(capacity int, opts ...ChannelOption) *EventChannel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &EventChannel{
		ch:   make(chan market.Event, capacity),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send queues evt, blocking while the buffer is full. It fails with
// ErrChannelClosed once the channel is closed and never retries.
func (c *EventChannel) Send(ctx context.Context, evt market.Event) error {
	if c.Closed() {
		return ErrChannelClosed
	}
	if !c.from.IsZero() && evt.Time.Before(c.from) {
		return nil
	}
	if !c.to.IsZero() && !evt.Time.Before(c.to) {
		c.Close()
		return ErrTimeframeEnd
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.ch <- evt:
		return nil
	}
}

// Receive returns the next event. Events queued before Close are still
// delivered; after that Receive returns ErrChannelClosed.
func (c *EventChannel) Receive(ctx context.Context) (market.Event, error) {
	select {
	case evt := <-c.ch:
		return evt, nil
	default:
	}

	select {
	case evt := <-c.ch:
		return evt, nil
	case <-c.done:
		select {
		case evt := <-c.ch:
			return evt, nil
		default:
			return market.Event{}, ErrChannelClosed
		}
	case <-ctx.Done():
		return market.Event{}, ctx.Err()
	}
}

// Close may be called by either side, any number of times.
func (c *EventChannel) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *EventChannel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *EventChannel) Len() int { return len(c.ch) }
func (c *EventChannel) Cap() int { return cap(c.ch) }
