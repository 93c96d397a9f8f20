package eikonal

import (
	"container/heap"

	"github.com/notargets/gofmm/grid"
)

type bandEntry[T grid.Real] struct {
	idx int64
	t   T
	seq uint64
}

// bandHeap orders entries by travel time, then by insertion sequence.
type bandHeap[T grid.Real] []bandEntry[T]

func (h bandHeap[T]) Len() int { return len(h) }

func (h bandHeap[T]) Less(i, j int) bool {
	if h[i].t != h[j].t {
		return h[i].t < h[j].t
	}
	return h[i].seq < h[j].seq
}

func (h bandHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *bandHeap[T]) Push(x any) { *h = append(*h, x.(bandEntry[T])) }

func (h *bandHeap[T]) Pop() any {
	var (
		old = *h
		n   = len(old)
		e   = old[n-1]
	)
	*h = old[:n-1]
	return e
}

// narrowBand is the Trial set of the fast marching front. A decreased
// tentative time is pushed again rather than updated in place; the older
// entry becomes stale and is dropped when it surfaces.
type narrowBand[T grid.Real] struct {
	h   bandHeap[T]
	seq uint64
}

func (nb *narrowBand[T]) Len() int { return nb.h.Len() }

func (nb *narrowBand[T]) Push(idx int64, t T) {
	heap.Push(&nb.h, bandEntry[T]{idx: idx, t: t, seq: nb.seq})
	nb.seq++
}

func (nb *narrowBand[T]) Pop() (idx int64, t T) {
	e := heap.Pop(&nb.h).(bandEntry[T])
	return e.idx, e.t
}
