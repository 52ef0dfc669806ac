// Package pubsub provides in-process snapshot topics: subscribers receive the
// latest published value on subscription and every value published after.
package pubsub

import "sync"

// Topic fans out full snapshots. Each subscriber buffers up to size unread
// snapshots; when the buffer is full the oldest unread one is dropped, so
// publishers never block.
type Topic[T any] struct {
	mu      sync.Mutex
	size    int
	latest  T
	hasLast bool
	closed  bool
	nextID  int
	subs    map[int]chan T
}

// NewTopic keeps only the newest unread snapshot per subscriber.
func NewTopic[T any]() *Topic[T] {
	return NewBufferedTopic[T](1)
}

// NewBufferedTopic lets subscribers lag by up to size snapshots before
// intermediate ones are dropped.
func NewBufferedTopic[T any](size int) *Topic[T] {
	if size < 1 {
		size = 1
	}
	return &Topic[T]{size: size, subs: make(map[int]chan T)}
}

func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.latest = v
	t.hasLast = true
	for _, ch := range t.subs {
		offer(ch, v)
	}
}

// Latest returns the current snapshot, if one was ever published.
func (t *Topic[T]) Latest() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.hasLast
}

// Subscribe returns a channel of snapshots and a cancel func that must be
// called when the subscriber goes away. cancel is idempotent.
func (t *Topic[T]) Subscribe() (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan T, t.size)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	if t.hasLast {
		ch <- t.latest
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later publishes are ignored.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

// offer queues v, dropping the oldest unread snapshot when ch is full.
// Called with the topic lock held, so no other sender races on ch.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
