package pubsub

import "sync"

// Hub keeps one topic per key, created on first use.
type Hub[K comparable, T any] struct {
	mu     sync.Mutex
	size   int
	topics map[K]*Topic[T]
}

func NewHub[K comparable, T any]() *Hub[K, T] {
	return NewBufferedHub[K, T](1)
}

// NewBufferedHub creates topics with NewBufferedTopic(size).
func NewBufferedHub[K comparable, T any](size int) *Hub[K, T] {
	return &Hub[K, T]{size: size, topics: make(map[K]*Topic[T])}
}

func (h *Hub[K, T]) Topic(key K) *Topic[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[key]
	if !ok {
		t = NewBufferedTopic[T](h.size)
		h.topics[key] = t
	}
	return t
}

func (h *Hub[K, T]) Publish(key K, v T) {
	h.Topic(key).Publish(v)
}

func (h *Hub[K, T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, t := range h.topics {
		t.Close()
		delete(h.topics, k)
	}
}
