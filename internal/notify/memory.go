package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 4

type memorySubscription struct {
	ch     chan TitleUpdate
	once   sync.Once
	closed atomic.Bool
}

// MemoryNotifier is a process-local Notifier.
type MemoryNotifier struct {
	mu     sync.RWMutex
	subs   map[uint]map[*memorySubscription]struct{}
	closed atomic.Bool
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[uint]map[*memorySubscription]struct{})}
}

func (n *MemoryNotifier) Publish(ctx context.Context, update TitleUpdate) error {
	if n.closed.Load() {
		return ErrClosed
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for sub := range n.subs[update.ChatID] {
		if sub.closed.Load() {
			continue
		}
		// Non-blocking: a slow watcher still has the polling fallback.
		select {
		case sub.ch <- update:
		default:
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, chatID uint) (<-chan TitleUpdate, func(), error) {
	if n.closed.Load() {
		return nil, nil, ErrClosed
	}

	sub := &memorySubscription{ch: make(chan TitleUpdate, subscriberBuffer)}
	n.mu.Lock()
	if n.subs[chatID] == nil {
		n.subs[chatID] = make(map[*memorySubscription]struct{})
	}
	n.subs[chatID][sub] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			n.mu.Lock()
			delete(n.subs[chatID], sub)
			if len(n.subs[chatID]) == 0 {
				delete(n.subs, chatID)
			}
			sub.closed.Store(true)
			close(sub.ch)
			n.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel, nil
}

// Subscribers reports how many watchers are attached to chatID.
func (n *MemoryNotifier) Subscribers(chatID uint) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[chatID])
}

func (n *MemoryNotifier) Close() error {
	if n.closed.Swap(true) {
		return ErrClosed
	}
	return nil
}
