package snapshot

import (
	"container/heap"
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/market-cache/pkg/logging"
)

// DefaultMaxEntries bounds the in-process store when no explicit
// capacity is configured.
const DefaultMaxEntries = 10000

// Store is a bounded, concurrency-safe snapshot map. When capacity is
// exceeded it evicts the entry with the oldest Timestamp — recency of
// data, not recency of access. Lookup is O(1); eviction is O(log n) via
// a timestamp min-heap.
type Store struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*storeItem
	heap       itemHeap

	remote *remoteTier
	logger zerolog.Logger
}

type storeItem struct {
	snapshot *Snapshot
	index    int // position in the heap
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries sets the capacity bound.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithRemote mirrors snapshots through the distributed cache. cacheTTL
// resolves a symbol to its remote TTL; nil uses DefaultRemoteTTL.
func WithRemote(svc CacheService, cacheTTL TTLFunc) Option {
	return func(s *Store) {
		if cacheTTL == nil {
			cacheTTL = DefaultRemoteTTL
		}
		s.remote = &remoteTier{cache: svc, ttl: cacheTTL, logger: s.logger}
	}
}

// NewStore creates a snapshot store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*storeItem),
		logger:     logging.NewLogger("snapshot"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the snapshot for a symbol, or nil when none exists.
// A local miss falls through to the remote tier when configured; a remote
// failure degrades silently to nil so the caller treats the data as
// first-time rather than failing.
func (s *Store) Get(ctx context.Context, symbol string) *Snapshot {
	s.mu.Lock()
	item, ok := s.entries[symbol]
	s.mu.Unlock()
	if ok {
		return item.snapshot.Clone()
	}

	if s.remote == nil {
		return nil
	}
	snap := s.remote.get(ctx, symbol)
	if snap == nil {
		return nil
	}
	// Warm the local tier without re-mirroring.
	s.putLocal(snap)
	return snap.Clone()
}

// Put stores a snapshot, replacing any previous one for the symbol, and
// mirrors it remotely when a remote tier is configured.
func (s *Store) Put(ctx context.Context, snap *Snapshot) {
	if snap == nil || snap.Symbol == "" {
		return
	}
	s.putLocal(snap.Clone())
	if s.remote != nil {
		s.remote.put(ctx, snap)
	}
}

// Len returns the number of locally held snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Symbols returns the symbols currently held locally.
func (s *Store) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	symbols := make([]string, 0, len(s.entries))
	for symbol := range s.entries {
		symbols = append(symbols, symbol)
	}
	return symbols
}

func (s *Store) putLocal(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.entries[snap.Symbol]; ok {
		item.snapshot = snap
		heap.Fix(&s.heap, item.index)
		return
	}

	item := &storeItem{snapshot: snap}
	s.entries[snap.Symbol] = item
	heap.Push(&s.heap, item)

	for len(s.entries) > s.maxEntries {
		oldest := heap.Pop(&s.heap).(*storeItem)
		delete(s.entries, oldest.snapshot.Symbol)
		s.logger.Debug().
			Str("symbol", oldest.snapshot.Symbol).
			Int64("timestamp", oldest.snapshot.Timestamp).
			Msg("Evicted oldest snapshot")
	}
}

// itemHeap is a min-heap ordered by snapshot timestamp.
type itemHeap []*storeItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	return h[i].snapshot.Timestamp < h[j].snapshot.Timestamp
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*storeItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
