package queues

// Queue is a FIFO. It is not safe for concurrent use.
type Queue[T any] []T

func NewQueue[T any]() *Queue[T] {
	q := Queue[T]{}
	return &q
}

func (q *Queue[T]) Push(x T) {
	*q = append(*q, x)
}

func (q *Queue[T]) Peek() T {
	return (*q)[0]
}

func (q *Queue[T]) Pop() T {
	x := (*q)[0]
	*q = (*q)[1:]
	return x
}

func (q *Queue[T]) IsEmpty() bool {
	return len(*q) == 0
}

func (q *Queue[T]) Len() int {
	return len(*q)
}

// PushBounded pushes x and drops the oldest items beyond max.
func (q *Queue[T]) PushBounded(x T, max int) {
	q.Push(x)
	for q.Len() > max {
		q.Pop()
	}
}

// Items returns a copy of the queue, oldest first.
func (q *Queue[T]) Items() []T {
	items := make([]T, len(*q))
	copy(items, *q)
	return items
}
