// internal/service/events/bus.go
package events

import (
	"context"
	"sync"

	"queueline-service/internal/domain/queue"

	"go.uber.org/zap"
)

// DefaultEventBufferSize is the default buffer size for each subscriber channel.
const DefaultEventBufferSize = 100

// Publisher is what the lifecycle controller depends on.
type Publisher interface {
	Publish(event queue.LifecycleEvent)
}

// Handler consumes one lifecycle event.
type Handler func(ctx context.Context, event queue.LifecycleEvent)

var _ Publisher = (*Bus)(nil)

type subscriber struct {
	name    string
	ch      chan queue.LifecycleEvent
	handler Handler
}

// Bus fans lifecycle events out to independent subscribers. Every subscriber
// owns a buffered channel and a goroutine, so a slow consumer never delays the
// publisher or the other subscribers. Events are delivered in publish order.
type Bus struct {
	bufferSize  int
	subscribers []*subscriber
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

func NewBus(bufferSize int, logger *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		bufferSize: bufferSize,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Subscribe registers a handler and starts its dispatch goroutine.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.logger.Warn("subscribe on closed event bus", zap.String("subscriber", name))
		return
	}

	sub := &subscriber{
		name:    name,
		ch:      make(chan queue.LifecycleEvent, b.bufferSize),
		handler: handler,
	}
	b.subscribers = append(b.subscribers, sub)

	b.wg.Add(1)
	go b.dispatch(sub)
}

// Publish delivers the event to every subscriber without blocking.
// When a subscriber buffer is full the event is dropped for that subscriber only.
func (b *Bus) Publish(event queue.LifecycleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed event bus", zap.String("type", string(event.Type)))
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("event buffer full, dropping event",
				zap.String("subscriber", sub.name),
				zap.String("type", string(event.Type)),
				zap.String("entry_id", event.Entry.ID),
			)
		}
	}
}

func (b *Bus) dispatch(sub *subscriber) {
	defer b.wg.Done()
	for event := range sub.ch {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub *subscriber, event queue.LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("subscriber", sub.name),
				zap.String("type", string(event.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	sub.handler(b.ctx, event)
}

// Close stops accepting events, drains what is buffered and waits for handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()
	b.logger.Debug("event bus closed")
}
