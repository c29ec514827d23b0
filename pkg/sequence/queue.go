package sequence

import "container/heap"

type PriorityItem[T any] struct {
	Value    T
	Priority float64
	index    int
	seq      uint64
}

type priorityQueue[T any] struct {
	items []*PriorityItem[T]
	less  func(a, b float64) bool
}

func (pq *priorityQueue[T]) Len() int {
	return len(pq.items)
}

func (pq *priorityQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority == b.Priority {
		// FIFO among equal priorities
		return a.seq < b.seq
	}
	return pq.less(a.Priority, b.Priority)
}

func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	item := x.(*PriorityItem[T])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	pq.items = old[0 : n-1]
	return item
}

// PriorityQueue is a heap ordered by a float64 priority. Items with equal
// priority leave in insertion order.
type PriorityQueue[T any] struct {
	pq   priorityQueue[T]
	next uint64
}

// NewPriorityQueue pops the highest priority first.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return newQueue[T](func(a, b float64) bool { return a > b })
}

// NewMinQueue pops the lowest priority first, e.g. the earliest deadline.
func NewMinQueue[T any]() *PriorityQueue[T] {
	return newQueue[T](func(a, b float64) bool { return a < b })
}

func newQueue[T any](less func(a, b float64) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{pq: priorityQueue[T]{less: less}}
	heap.Init(&pq.pq)
	return pq
}

func (pq *PriorityQueue[T]) Enqueue(value T, priority float64) *PriorityItem[T] {
	item := &PriorityItem[T]{
		Value:    value,
		Priority: priority,
		seq:      pq.next,
	}
	pq.next++
	heap.Push(&pq.pq, item)
	return item
}

func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	item := heap.Pop(&pq.pq).(*PriorityItem[T])
	return item.Value, true
}

// Peek returns the next value and its priority without removing it.
func (pq *PriorityQueue[T]) Peek() (T, float64, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, 0, false
	}
	head := pq.pq.items[0]
	return head.Value, head.Priority, true
}

func (pq *PriorityQueue[T]) Len() int {
	return pq.pq.Len()
}

func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.pq.Len() == 0
}

// Clear drops every item.
func (pq *PriorityQueue[T]) Clear() {
	pq.pq.items = nil
}
