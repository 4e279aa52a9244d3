package queue

import "sync"

// Queue is a FIFO of messages. Enqueue order is dequeue order; there is no
// priority and no deduplication.
type Queue struct {
	mu    sync.Mutex
	items []Message
	total int
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(m Message) {
	if b, ok := m.(SetBones); ok {
		b.Bones = append([]Bone(nil), b.Bones...)
		m = b
	}
	q.mu.Lock()
	q.items = append(q.items, m)
	q.total++
	q.mu.Unlock()
}

func (q *Queue) Dequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return m, true
}

// MaxDrainRounds bounds how many batches one Drain takes.
const MaxDrainRounds = 16

// Drain handles the messages queued when it starts, then the messages
// enqueued while they were handled, for at most MaxDrainRounds batches.
// Anything enqueued after the last batch waits for the next Drain. It
// returns the number handled.
func (q *Queue) Drain(fn func(Message)) int {
	n := 0
	for round := 0; round < MaxDrainRounds; round++ {
		q.mu.Lock()
		batch := q.items
		q.items = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			break
		}
		for _, m := range batch {
			fn(m)
			n++
		}
	}
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Total counts every message ever enqueued.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
