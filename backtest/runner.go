// Package backtest drives simulation runs: a feed plays events into a
// bounded channel from its own goroutine while the run loop processes them
// through the matching engine and asks the policy for new orders.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradesim/broker/sim"
	"github.com/rustyeddy/tradesim/feed"
	"github.com/rustyeddy/tradesim/strategies"
)

// Options controls how a run consumes its feed.
type Options struct {
	// Capacity of the event channel. Zero uses feed.DefaultCapacity.
	Capacity int

	// From and To restrict the run to events in [From, To). Zero is open.
	From time.Time
	To   time.Time

	// MaxEvents stops the run after that many events. Zero means no limit.
	MaxEvents int
}

// Runner owns everything one run mutates. Runners share nothing, so
// several can run at once.
type Runner struct {
	Name    string
	Feed    feed.Feed
	Engine  *sim.Engine
	Policy  strategies.Policy
	Options Options
	Logger  *zap.Logger
}

func (r *Runner) validate() error {
	if r.Engine == nil {
		return fmt.Errorf("backtest: Engine is required")
	}
	if r.Feed == nil {
		return fmt.Errorf("backtest: Feed is required")
	}
	if r.Policy == nil {
		return fmt.Errorf("backtest: Policy is required")
	}
	return nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Run plays the feed to its end, or until ctx is done, MaxEvents is
// reached or a step fails. The event channel is closed on every exit so
// the producer never stays blocked.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	log := r.logger().With(zap.String("run", r.Name))

	ch := feed.NewEventChannel(r.Options.Capacity, feed.WithTimeframe(r.Options.From, r.Options.To))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Feed.Play(gctx, ch) })

	res := newResult(r.Name, r.Engine.Account())
	err := r.loop(gctx, ch, &res, log)
	ch.Close()

	if werr := g.Wait(); werr != nil {
		log.Error("feed failed", zap.Error(werr))
		return res, fmt.Errorf("backtest: feed: %w", werr)
	}
	if err != nil {
		return res, err
	}

	log.Info("run finished",
		zap.Int("events", res.Events),
		zap.Int("executions", res.Executions),
		zap.Float64("end_equity", res.EndEquity),
		zap.Float64("max_drawdown_pct", res.MaxDrawdownPct))
	return res, nil
}

func (r *Runner) loop(ctx context.Context, ch *feed.EventChannel, res *Result, log *zap.Logger) error {
	for {
		if r.Options.MaxEvents > 0 && res.Events >= r.Options.MaxEvents {
			log.Debug("event limit reached", zap.Int("max", r.Options.MaxEvents))
			return nil
		}

		evt, err := ch.Receive(ctx)
		if errors.Is(err, feed.ErrChannelClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		acct, err := r.Engine.Process(evt)
		if err != nil {
			return fmt.Errorf("backtest: process %s: %w", evt.Time.Format(time.RFC3339), err)
		}
		res.observe(evt.Time, acct)

		orders, err := r.Policy.Act(ctx, evt, acct)
		if err != nil {
			return fmt.Errorf("backtest: policy: %w", err)
		}
		if len(orders) == 0 {
			continue
		}
		if _, err := r.Engine.Place(orders...); err != nil {
			return fmt.Errorf("backtest: place: %w", err)
		}
	}
}

// RunAll executes independent runs with at most parallelism of them at a
// time. A failing run does not stop the others; the first error is
// returned after all have finished. results[i] belongs to runs[i].
func RunAll(ctx context.Context, runs []*Runner, parallelism int) ([]Result, error) {
	results := make([]Result, len(runs))

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, r := range runs {
		i, r := i, r
		g.Go(func() error {
			res, err := r.Run(ctx)
			results[i] = res
			if err != nil {
				return fmt.Errorf("run %q: %w", r.Name, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}
