package render

import (
	"sync"
	"time"
)

// queue is a bounded fifo of timed media units. Producers block while
// the queue is full, the pacing loop pops the entries that are due.
type queue[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	items []entry[T]
	limit int

	dur time.Duration
	end time.Duration

	eos    bool
	closed bool
	done   bool
	ended  chan struct{}
}

type entry[T any] struct {
	data T
	at   time.Duration
	dur  time.Duration
}

func newQueue[T any](limit int, start time.Duration) *queue[T] {
	q := &queue[T]{limit: limit, end: start, ended: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends one unit right after the previous one on the media
// timeline. Blocks while the queue is full, returns false when the
// queue is closed and the unit is dropped.
func (q *queue[T]) push(data T, dur time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.limit && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return false
	}
	q.items = append(q.items, entry[T]{data: data, at: q.end, dur: dur})
	q.dur += dur
	q.end += dur
	return true
}

// popDue removes and returns the entries that start at or before pos.
func (q *queue[T]) popDue(pos time.Duration) []entry[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.items) && q.items[n].at <= pos {
		n++
	}
	if n == 0 {
		q.checkEnded()
		return nil
	}
	due := make([]entry[T], n)
	copy(due, q.items)
	q.items = q.items[n:]
	for _, e := range due {
		q.dur -= e.dur
	}
	q.checkEnded()
	q.cond.Broadcast()
	return due
}

// markEnd declares that no more units will arrive; the ended channel
// closes once the remaining entries drain.
func (q *queue[T]) markEnd() {
	q.mu.Lock()
	q.eos = true
	q.checkEnded()
	q.mu.Unlock()
}

func (q *queue[T]) checkEnded() {
	if q.eos && !q.done && len(q.items) == 0 {
		close(q.ended)
		q.done = true
	}
}

// close unblocks the producers; pending entries stay poppable.
func (q *queue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *queue[T]) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue[T]) duration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dur
}

func (q *queue[T]) endTime() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.end
}
