package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	UpdateCheckStarted    Type = "update-check-started"
	UpdateCheckComplete   Type = "update-check-complete"
	UpdatingGamesStarted  Type = "updating-games-started"
	UpdatingGamesComplete Type = "updating-games-complete"
)

// Event payloads: models.UpdateCheckResult for UpdateCheckComplete,
// models.UpdateResult for UpdatingGamesComplete, nil otherwise.
type Event struct {
	ID      string
	Type    Type
	Time    time.Time
	Payload any
}

type Handler func(Event)

type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]Handler
	nextID      uint64

	buffer chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewBus(bufferSize int, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		subscribers: make(map[uint64]Handler),
		buffer:      make(chan Event, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}

	bus.startWorker()
	return bus
}

// Publish never blocks. When the buffer is full or the bus is closed the event is dropped.
func (b *Bus) Publish(t Type, payload any) {
	if b.ctx.Err() != nil {
		return
	}
	event := Event{ID: uuid.NewString(), Type: t, Time: time.Now(), Payload: payload}

	select {
	case b.buffer <- event:
	case <-b.ctx.Done():
	default:
		b.logger.Debug("event dropped, buffer full", zap.String("type", string(t)))
	}
}

// Subscribe registers h for every event type and returns a func that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Close stops the dispatcher. Events still buffered are discarded.
func (b *Bus) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bus) startWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		for {
			select {
			case event := <-b.buffer:
				b.dispatch(event)
			case <-b.ctx.Done():
				return
			}
		}
	}()
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeHandle(h, event)
	}
}

func (b *Bus) safeHandle(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.String("type", string(event.Type)), zap.Any("panic", r))
		}
	}()
	h(event)
}
