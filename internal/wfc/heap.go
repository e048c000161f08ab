package wfc

// HeapItem is an element that remembers its own slot in a Heap so the heap
// can update it in O(log n) and answer Contains in O(1). An item outside
// any heap must report -1.
type HeapItem interface {
	comparable
	HeapIndex() int
	SetHeapIndex(int)
}

// Heap is an array-backed binary heap. before(a, b) reports whether a must
// be removed before b.
type Heap[T HeapItem] struct {
	items  []T
	before func(a, b T) bool
}

// NewHeap creates an empty heap with room for capacity items.
func NewHeap[T HeapItem](capacity int, before func(a, b T) bool) *Heap[T] {
	return &Heap[T]{
		items:  make([]T, 0, capacity),
		before: before,
	}
}

// Len returns the number of queued items.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Contains reports whether item is currently queued.
func (h *Heap[T]) Contains(item T) bool {
	i := item.HeapIndex()
	return i >= 0 && i < len(h.items) && h.items[i] == item
}

// Add queues item. It returns false, leaving the heap untouched, when the
// item is already queued.
func (h *Heap[T]) Add(item T) bool {
	if h.Contains(item) {
		return false
	}
	item.SetHeapIndex(len(h.items))
	h.items = append(h.items, item)
	h.up(len(h.items) - 1)
	return true
}

// Peek returns the next item without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[0], true
}

// RemoveFirst removes and returns the item that sorts first.
func (h *Heap[T]) RemoveFirst() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	first := h.items[0]
	last := len(h.items) - 1
	h.swap(0, last)
	h.items[last] = zero
	h.items = h.items[:last]
	first.SetHeapIndex(-1)
	if len(h.items) > 0 {
		h.down(0)
	}
	return first, true
}

// Update restores heap order after the priority of a queued item changed
// in either direction.
func (h *Heap[T]) Update(item T) bool {
	if !h.Contains(item) {
		return false
	}
	i := item.HeapIndex()
	if !h.up(i) {
		h.down(i)
	}
	return true
}

// up sifts the item at i towards the root and reports whether it moved.
func (h *Heap[T]) up(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.before(h.items[i], h.items[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *Heap[T]) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		child := left
		if right := left + 1; right < n && h.before(h.items[right], h.items[left]) {
			child = right
		}
		if !h.before(h.items[child], h.items[i]) {
			return
		}
		h.swap(i, child)
		i = child
	}
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].SetHeapIndex(i)
	h.items[j].SetHeapIndex(j)
}
