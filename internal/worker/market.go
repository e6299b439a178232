package worker

import (
	"context"
	"time"
)

// MarketRefresher fetches prices and writes them to the store.
type MarketRefresher interface {
	Refresh(ctx context.Context) error
}

// MarketWorker periodically refreshes market data.
type MarketWorker struct {
	refresher MarketRefresher
	loop      loop
}

// NewMarketWorker creates a new MarketWorker. recorder may be nil.
func NewMarketWorker(refresher MarketRefresher, interval time.Duration, recorder RunRecorder) *MarketWorker {
	return &MarketWorker{
		refresher: refresher,
		loop:      loop{name: "MarketWorker", interval: interval, recorder: recorder},
	}
}

// Run starts the market worker loop. It blocks until the context is cancelled.
func (w *MarketWorker) Run(ctx context.Context) {
	w.loop.run(ctx, w.refresher.Refresh)
}
