package eventstore

import (
	"container/heap"
	"sort"

	"github.com/eventstore/eventcore/internal/domain"
)

// maxHeap keeps the N smallest-sequence events seen so far, evicting the
// current largest whenever a new smaller candidate arrives once it's full.
// This bounds memory to O(limit) instead of O(matches) for Filter.Limit,
// as required by the spec's getEvents contract.
type maxHeap struct {
	items []domain.Event
}

func (h maxHeap) Len() int { return len(h.items) }
func (h maxHeap) Less(i, j int) bool {
	return h.items[i].ID.Sequence > h.items[j].ID.Sequence
}
func (h maxHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *maxHeap) Push(x interface{}) {
	h.items = append(h.items, x.(domain.Event))
}

func (h *maxHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// topN collects events from a (possibly unordered) source sequence into
// the limit smallest-sequence matches, then returns them sorted ascending
// by sequence. If limit <= 0, every event offered is retained in arrival
// order relative to final sort.
func topN(limit int) *boundedCollector {
	return &boundedCollector{limit: limit}
}

type boundedCollector struct {
	limit int
	h     maxHeap
	all   []domain.Event
}

func (c *boundedCollector) offer(e domain.Event) {
	if c.limit <= 0 {
		c.all = append(c.all, e)
		return
	}
	if c.h.Len() < c.limit {
		heap.Push(&c.h, e)
		return
	}
	if e.ID.Sequence < c.h.items[0].ID.Sequence {
		heap.Pop(&c.h)
		heap.Push(&c.h, e)
	}
}

func (c *boundedCollector) result() []domain.Event {
	var out []domain.Event
	if c.limit <= 0 {
		out = c.all
	} else {
		out = make([]domain.Event, len(c.h.items))
		copy(out, c.h.items)
	}
	sortEventsBySequence(out)
	return out
}

func sortEventsBySequence(events []domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ID.Sequence < events[j].ID.Sequence
	})
}
