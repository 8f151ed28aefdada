package app

import (
	"context"
	"time"
)

// Ticker is the subset of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// NewWallTicker is the production TickerFactory.
func NewWallTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}

// countdown delivers one-second ticks to onTick until cancelled or onTick returns false.
// Each question activation owns exactly one countdown.
type countdown struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startCountdown(newTicker TickerFactory, onTick func() bool) *countdown {
	ctx, cancel := context.WithCancel(context.Background())
	c := &countdown{cancel: cancel, done: make(chan struct{})}
	ticker := newTicker(time.Second)

	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if !onTick() {
					return
				}
			}
		}
	}()
	return c
}

// stop cancels the countdown without waiting; callers may hold the session lock.
func (c *countdown) stop() {
	if c != nil {
		c.cancel()
	}
}
