package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
)

const defaultBufferSize = 100

// Handler receives every dispatched event on the dispatcher goroutine
type Handler func(entities.TurnEvent)

type subscriber struct {
	name    string
	handler Handler
}

// Dispatcher fans TurnEvents out to subscribers. Emit never blocks: when
// the buffer is full the event is dropped with a warning.
type Dispatcher struct {
	events      chan entities.TurnEvent
	subscribers []subscriber
	mu          sync.RWMutex
	closed      bool
	done        chan struct{}
	startOnce   sync.Once
	logger      *zap.Logger
}

// Ensure Dispatcher implements the EventSink interface
var _ repositories.EventSink = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Start must be called before events
// are delivered.
func NewDispatcher(bufferSize int, logger *zap.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Dispatcher{
		events: make(chan entities.TurnEvent, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Subscribe registers a handler. Subscribe before Start.
func (d *Dispatcher) Subscribe(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, subscriber{name: name, handler: handler})
	d.logger.Debug("Event subscriber registered", zap.String("subscriber", name))
}

// Emit queues an event for delivery
func (d *Dispatcher) Emit(event entities.TurnEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn("Event channel full, dropping event", zap.String("type", string(event.Type)))
	}
}

// Start launches the delivery goroutine
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		d.mu.RLock()
		subs := d.subscribers
		d.mu.RUnlock()

		for _, s := range subs {
			d.deliver(s, event)
		}
	}
}

func (d *Dispatcher) deliver(s subscriber, event entities.TurnEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Event subscriber panicked",
				zap.String("subscriber", s.name),
				zap.String("type", string(event.Type)),
				zap.Any("panic", r))
		}
	}()
	s.handler(event)
}

// Close stops accepting events and waits until queued events are delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	d.Start()
	<-d.done
}
