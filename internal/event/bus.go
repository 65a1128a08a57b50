// Package event is the publish/subscribe primitive shared by records and
// collections.
package event

import "sync"

// Wildcard subscribes a handler to every event published on a Bus.
const Wildcard = "*"

type Handler[E any] func(name string, e E)

type subscription[E any] struct {
	id int
	fn Handler[E]
}

// Bus dispatches events synchronously, in subscription order. Handlers are
// called without the bus lock held, so they may subscribe, unsubscribe or
// publish again.
type Bus[E any] struct {
	locker   sync.RWMutex
	next_id  int
	handlers map[string][]subscription[E]
}

func NewBus[E any]() *Bus[E] {
	return &Bus[E]{handlers: make(map[string][]subscription[E])}
}

// On registers fn for name and returns a function that removes it.
func (b *Bus[E]) On(name string, fn Handler[E]) func() {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.next_id++
	id := b.next_id
	b.handlers[name] = append(b.handlers[name], subscription[E]{id, fn})

	return func() { b.off(name, id) }
}

// Once is On with automatic removal after the first call.
func (b *Bus[E]) Once(name string, fn Handler[E]) func() {
	var once sync.Once
	var off func()
	off = b.On(name, func(n string, e E) {
		once.Do(func() {
			off()
			fn(n, e)
		})
	})
	return off
}

func (b *Bus[E]) off(name string, id int) {
	b.locker.Lock()
	defer b.locker.Unlock()
	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[name]) == 0 {
		delete(b.handlers, name)
	}
}

func (b *Bus[E]) Emit(name string, e E) {
	b.locker.RLock()
	subs := make([]subscription[E], 0, len(b.handlers[name])+len(b.handlers[Wildcard]))
	subs = append(subs, b.handlers[name]...)
	if name != Wildcard {
		subs = append(subs, b.handlers[Wildcard]...)
	}
	b.locker.RUnlock()

	for _, s := range subs {
		s.fn(name, e)
	}
}

// Count returns the number of handlers registered for name.
func (b *Bus[E]) Count(name string) int {
	b.locker.RLock()
	defer b.locker.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus[E]) Clear() {
	b.locker.Lock()
	defer b.locker.Unlock()
	b.handlers = make(map[string][]subscription[E])
}
