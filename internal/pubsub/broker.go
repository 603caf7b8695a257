package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultChannelBufferSize = 64

// Broker fans events out to any number of context-scoped subscribers.
// Publishing never blocks the caller; a subscriber that cannot keep up is
// given a short grace period and then the event is dropped for it.
type Broker[T any] struct {
	subs     map[chan Event[T]]context.CancelFunc
	mu       sync.RWMutex
	isClosed bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]context.CancelFunc),
	}
}

// Subscribe returns a channel that receives events until ctx is cancelled or
// the broker shuts down. The channel is closed on either.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed {
		closedCh := make(chan Event[T])
		close(closedCh)
		return closedCh
	}

	subCtx, subCancel := context.WithCancel(ctx)
	ch := make(chan Event[T], defaultChannelBufferSize)
	b.subs[ch] = subCancel

	go func() {
		<-subCtx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			close(ch)
			delete(b.subs, ch)
		}
	}()

	return ch
}

func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isClosed {
		slog.Warn("Publish on closed pubsub broker", "type", eventType)
		return
	}

	event := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber; retry off the publisher's goroutine so one
			// stuck receiver cannot stall the rest.
			go func(sChan chan Event[T]) {
				b.mu.RLock()
				closed := b.isClosed
				b.mu.RUnlock()
				if closed {
					return
				}
				select {
				case sChan <- event:
				case <-time.After(2 * time.Second):
					slog.Warn("Dropped event for slow subscriber", "type", event.Type)
				}
			}(ch)
		}
	}
}

// Shutdown closes all subscriber channels. Further Subscribe calls return an
// already-closed channel and further Publish calls are no-ops.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed {
		return
	}
	b.isClosed = true
	for ch, cancel := range b.subs {
		cancel()
		close(ch)
		delete(b.subs, ch)
	}
}

func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
