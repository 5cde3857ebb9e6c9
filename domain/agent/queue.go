package agent

// Queue is an ordered FIFO work queue.
type Queue[T any] struct {
	items []T
}

// NewQueue creates a queue holding the given items in order.
func NewQueue[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	q.Push(items...)
	return q
}

// Push appends items at the back.
func (q *Queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

// Pop removes and returns the front item.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Peek returns the front item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Replace drops the current contents and enqueues items instead.
func (q *Queue[T]) Replace(items ...T) {
	q.items = append(make([]T, 0, len(items)), items...)
}

// Clear empties the queue.
func (q *Queue[T]) Clear() {
	q.items = nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Empty returns true if nothing is queued.
func (q *Queue[T]) Empty() bool {
	return len(q.items) == 0
}

// Items returns a copy of the queued items in order.
func (q *Queue[T]) Items() []T {
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}
