package events

import (
	"context"
	"sync"
	"time"

	"enip/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeIngestCompleted   EventType = "ingest_completed"
	EventTypeCallChanged       EventType = "call_changed"
	EventTypeDocumentPublished EventType = "document_published"
	EventTypeExportCompleted   EventType = "export_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// IngestCompletedEvent is emitted once an ingest run has been committed
type IngestCompletedEvent struct {
	IngestID  int64     `json:"ingestId"`
	IngestDT  time.Time `json:"ingestDt"`
	Waypoints []string  `json:"waypoints"`
	Persisted bool      `json:"persisted"`
	Records   int       `json:"records"`
}

func (e IngestCompletedEvent) Type() EventType {
	return EventTypeIngestCompleted
}

// CallChangedEvent is emitted when the feed's call for a geography changes
type CallChangedEvent struct {
	Office models.Office `json:"office"`
	State  string        `json:"state"`
	Party  *models.Party `json:"party"`
}

func (e CallChangedEvent) Type() EventType {
	return EventTypeCallChanged
}

// DocumentPublishedEvent is emitted when a document's latest pointer moves
type DocumentPublishedEvent struct {
	IngestID    int64     `json:"ingestId"`
	Path        string    `json:"path"`
	ObjectPath  string    `json:"objectPath"`
	URL         string    `json:"url"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (e DocumentPublishedEvent) Type() EventType {
	return EventTypeDocumentPublished
}

// ExportCompletedEvent summarises one export pass
type ExportCompletedEvent struct {
	IngestID int64    `json:"ingestId"`
	Changed  []string `json:"changed"`
	Failed   []string `json:"failed"`
}

func (e ExportCompletedEvent) Type() EventType {
	return EventTypeExportCompleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously; a panicking handler is logged and does not affect others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit.
// Handlers get a background context so they outlive the transaction's context.
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
