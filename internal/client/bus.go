package client

import "sync"

// TitleChanged announces a chat's new title.
type TitleChanged struct {
	ChatID uint
	Title  string
}

// TitleBus is a process-wide fan-out of title changes, so the view that owns
// a chat need not know which lists display it.
type TitleBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(TitleChanged)
}

func NewTitleBus() *TitleBus {
	return &TitleBus{subs: make(map[int]func(TitleChanged))}
}

// Subscribe registers fn and returns its unsubscribe function.
func (b *TitleBus) Subscribe(fn func(TitleChanged)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every subscriber synchronously, outside the lock so handlers
// may subscribe or unsubscribe.
func (b *TitleBus) Publish(ev TitleChanged) {
	b.mu.RLock()
	handlers := make([]func(TitleChanged), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
