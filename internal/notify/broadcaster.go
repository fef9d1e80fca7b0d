// Package notify delivers full-state snapshots to subscribers.
package notify

import "sync"

// Broadcaster fans published snapshots out to subscribers. Each subscriber
// runs its callback on its own goroutine and holds at most one pending
// snapshot: a newer publish replaces an undelivered one, so a slow
// subscriber always catches up to the latest state without blocking Publish.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	last   T
	primed bool
	closed bool
}

type subscriber[T any] struct {
	mailbox chan T
	done    chan struct{}
	once    sync.Once
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]*subscriber[T])}
}

// Publish records v as the current snapshot and hands it to every subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = v
	b.primed = true
	for _, s := range b.subs {
		s.offer(v)
	}
}

// Primed reports whether a snapshot has been published yet.
func (b *Broadcaster[T]) Primed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.primed
}

// Subscribe registers fn. If a snapshot has already been published, fn
// receives it first. The returned function unsubscribes and is idempotent.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	s := &subscriber[T]{
		mailbox: make(chan T, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	if b.primed {
		s.offer(b.last)
	}
	b.mu.Unlock()

	go s.run(fn)

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		s.stop()
	}
}

// Close drops every subscriber. Later publishes are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		s.stop()
		delete(b.subs, id)
	}
}

// offer must be called with the broadcaster lock held; that makes the
// broadcaster the mailbox's only sender, so the final send cannot block.
func (s *subscriber[T]) offer(v T) {
	select {
	case s.mailbox <- v:
		return
	default:
	}
	select {
	case <-s.mailbox:
	default:
	}
	s.mailbox <- v
}

func (s *subscriber[T]) run(fn func(T)) {
	for {
		select {
		case <-s.done:
			return
		case v := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			fn(v)
		}
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}
