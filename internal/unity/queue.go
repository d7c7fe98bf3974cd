package unity

import "sync"

const DefaultQueueSize = 100

// Queue keeps the most recent messages for clients that connect late.
type Queue struct {
	mu       sync.Mutex
	messages []Message
	size     int
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		messages: make([]Message, 0, size),
		size:     size,
	}
}

// Push appends msg, dropping the oldest entry once the queue is full.
func (q *Queue) Push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == q.size {
		copy(q.messages, q.messages[1:])
		q.messages = q.messages[:q.size-1]
	}
	q.messages = append(q.messages, msg)
}

// Messages returns a copy, oldest first.
func (q *Queue) Messages() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Message, len(q.messages))
	copy(out, q.messages)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
