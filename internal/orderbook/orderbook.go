// Package orderbook implements a price-time priority book for a single
// symbol, built directly on container/heap. Cancellation is lazy: a
// cancelled entry stays in the heap until it bubbles to the top, where it
// is discarded rather than matched. A modify reinserts the entry with a
// fresh sequence number, resetting its time priority.
package orderbook

import (
	"container/heap"
	"sync"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

// BookEntry is one resting order inside a side's heap.
type BookEntry struct {
	ID        string
	Sequence  uint64
	Order     *core.Order
	cancelled bool
	index     int // heap.Interface bookkeeping
}

// PriceLevel aggregates remaining quantity at one price, for Depth().
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
}

type side int

const (
	bidSide side = iota
	askSide
)

// bookHeap is a container/heap.Interface over *BookEntry. less is supplied
// per-side: bids want (higher price, lower sequence) at the head; asks want
// (lower price, lower sequence).
type bookHeap struct {
	entries []*BookEntry
	side    side
}

func (h *bookHeap) Len() int { return len(h.entries) }

func (h *bookHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	cmp := a.Order.LimitPrice.Cmp(b.Order.LimitPrice)
	if h.side == bidSide {
		cmp = -cmp // higher price wins for bids
	}
	if cmp != 0 {
		return cmp < 0
	}
	return a.Sequence < b.Sequence
}

func (h *bookHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].index = i
	h.entries[j].index = j
}

func (h *bookHeap) Push(x any) {
	e := x.(*BookEntry)
	e.index = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *bookHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	return e
}

// Book is the two-sided order book for one symbol. Safe for concurrent use.
type Book struct {
	mu       sync.Mutex
	Symbol   string
	bids     *bookHeap
	asks     *bookHeap
	byID     map[string]*BookEntry
	sequence uint64
	ids      core.IDSequence
}

// New creates an empty book for symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids:   &bookHeap{side: bidSide},
		asks:   &bookHeap{side: askSide},
		byID:   make(map[string]*BookEntry),
	}
}

func (b *Book) nextSequence() uint64 {
	b.sequence++
	return b.sequence
}

func (b *Book) heapFor(o *core.Order) *bookHeap {
	if o.OrderSide() == core.Buy {
		return b.bids
	}
	return b.asks
}

// Add admits order into the book, assigning it a monotonic sequence number
// and (if unset) an id. Returns the id.
func (b *Book) Add(order *core.Order) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if order.ID == "" {
		order.ID = b.ids.Next()
	}
	entry := &BookEntry{
		ID:       order.ID,
		Sequence: b.nextSequence(),
		Order:    order,
	}
	b.byID[entry.ID] = entry
	heap.Push(b.heapFor(order), entry)
	return entry.ID
}

// Cancel marks id cancelled. Returns false if id is unknown or already
// cancelled; the entry itself is only physically removed once it bubbles
// to the top of its heap.
func (b *Book) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.byID[id]
	if !ok || entry.cancelled {
		return false
	}
	entry.cancelled = true
	delete(b.byID, id)
	return true
}

// Modify changes price and/or quantity of a resting order, implemented as
// cancel-then-reinsert: any change resets time priority via a fresh
// sequence number. Returns false if id is unknown or cancelled; the
// order's status is not checked.
func (b *Book) Modify(id string, newPrice *decimal.Decimal, newQty *int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.byID[id]
	if !ok || entry.cancelled {
		return false
	}

	h := b.heapFor(entry.Order)
	heap.Remove(h, entry.index)
	delete(b.byID, id)

	if newPrice != nil {
		entry.Order.LimitPrice = *newPrice
	}
	if newQty != nil {
		entry.Order.Quantity = *newQty
	}

	entry.Sequence = b.nextSequence()
	newH := b.heapFor(entry.Order)
	b.byID[id] = entry
	heap.Push(newH, entry)
	return true
}

// dropCancelledTop discards cancelled entries from the top of h until a
// live one surfaces or the heap is empty.
func dropCancelledTop(h *bookHeap) {
	for h.Len() > 0 {
		top := h.entries[0]
		if !top.cancelled {
			return
		}
		heap.Pop(h)
	}
}

// BestBid returns the highest live bid entry, or nil.
func (b *Book) BestBid() *BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropCancelledTop(b.bids)
	if b.bids.Len() == 0 {
		return nil
	}
	return b.bids.entries[0]
}

// BestAsk returns the lowest live ask entry, or nil.
func (b *Book) BestAsk() *BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropCancelledTop(b.asks)
	if b.asks.Len() == 0 {
		return nil
	}
	return b.asks.entries[0]
}

// Spread returns ask - bid, and true, if both sides are non-empty.
func (b *Book) Spread() (decimal.Decimal, bool) {
	bid := b.BestBid()
	ask := b.BestAsk()
	if bid == nil || ask == nil {
		return decimal.Zero, false
	}
	return ask.Order.LimitPrice.Sub(bid.Order.LimitPrice), true
}

// TopOfBookMatchable returns both tops if best_bid >= best_ask, else
// (nil, nil, false).
func (b *Book) TopOfBookMatchable() (*BookEntry, *BookEntry, bool) {
	bid := b.BestBid()
	ask := b.BestAsk()
	if bid == nil || ask == nil {
		return nil, nil, false
	}
	if bid.Order.LimitPrice.Cmp(ask.Order.LimitPrice) >= 0 {
		return bid, ask, true
	}
	return nil, nil, false
}

// Depth aggregates remaining quantity per price level, top k levels each
// side, best price first. Lazily-cancelled entries are excluded.
func (b *Book) Depth(k int) (bids, asks []PriceLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return aggregateLevels(b.bids, k, bidSide), aggregateLevels(b.asks, k, askSide)
}

func aggregateLevels(h *bookHeap, k int, s side) []PriceLevel {
	totals := make(map[string]int64)
	order := make([]decimal.Decimal, 0)
	seen := make(map[string]bool)

	for _, e := range h.entries {
		if e.cancelled {
			continue
		}
		key := e.Order.LimitPrice.String()
		if !seen[key] {
			seen[key] = true
			order = append(order, e.Order.LimitPrice)
		}
		totals[key] += e.Order.RemainingQuantity()
	}

	// sort by best-price-first for this side
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && betterPrice(order[j], order[j-1], s) {
			order[j], order[j-1] = order[j-1], order[j]
			j--
		}
	}

	if k > 0 && len(order) > k {
		order = order[:k]
	}

	levels := make([]PriceLevel, 0, len(order))
	for _, p := range order {
		levels = append(levels, PriceLevel{Price: p, Quantity: totals[p.String()]})
	}
	return levels
}

func betterPrice(a, b decimal.Decimal, s side) bool {
	if s == bidSide {
		return a.Cmp(b) > 0
	}
	return a.Cmp(b) < 0
}
