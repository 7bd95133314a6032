package game

// ColorQueue is the FIFO of upcoming ball colors.
type ColorQueue struct {
	items    []int
	capacity int
}

func NewColorQueue(capacity int) *ColorQueue {
	return &ColorQueue{items: make([]int, 0, capacity), capacity: capacity}
}

func (q *ColorQueue) Len() int { return len(q.items) }
func (q *ColorQueue) Cap() int { return q.capacity }

// Enqueue appends id unless the queue is full.
func (q *ColorQueue) Enqueue(id int) bool {
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, id)
	return true
}

// Dequeue pops the oldest color.
func (q *ColorQueue) Dequeue() (int, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	id := q.items[0]
	q.items = append(q.items[:0], q.items[1:]...)
	return id, true
}

// Fill tops the queue up to capacity with colors from next and returns how
// many were added.
func (q *ColorQueue) Fill(next func() int) int {
	added := 0
	for len(q.items) < q.capacity {
		q.items = append(q.items, next())
		added++
	}
	return added
}

// Items returns a copy, oldest first.
func (q *ColorQueue) Items() []int {
	out := make([]int, len(q.items))
	copy(out, q.items)
	return out
}

func (q *ColorQueue) Reset() { q.items = q.items[:0] }
