// Package testutil provides testing utilities for the market-data cache.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Quote is a minimal upstream market-data payload shape.
type Quote struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"lastPrice"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	BidSize       float64 `json:"bidSize"`
	AskSize       float64 `json:"askSize"`
}

// FakeFeed is a configurable stand-in for an upstream quote source.
// It tracks fetch counts so tests can assert how often the upstream was
// actually hit.
type FakeFeed struct {
	mu     sync.Mutex
	quotes map[string]Quote
	delay  time.Duration

	// FetchCount is the total number of Fetch calls served.
	FetchCount int
}

// NewFakeFeed creates a feed with no quotes configured.
func NewFakeFeed() *FakeFeed {
	return &FakeFeed{quotes: make(map[string]Quote)}
}

// SetQuote configures the quote returned for a symbol.
func (f *FakeFeed) SetQuote(q Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[q.Symbol] = q
}

// SetDelay makes every fetch take at least d, simulating a slow upstream.
func (f *FakeFeed) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Fetch returns the configured quote for symbol, honoring the context
// deadline during any configured delay.
func (f *FakeFeed) Fetch(ctx context.Context, symbol string) (Quote, error) {
	f.mu.Lock()
	f.FetchCount++
	delay := f.delay
	q := f.quotes[symbol]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Quote{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return q, nil
}

// FetchJSON returns the configured quote as a raw JSON payload, the shape
// the change-detection engine consumes.
func (f *FakeFeed) FetchJSON(ctx context.Context, symbol string) ([]byte, error) {
	q, err := f.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return json.Marshal(q)
}

// Fetches returns the number of Fetch calls served so far.
func (f *FakeFeed) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FetchCount
}
