package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Chat list events
	ChatsLoaded  EventType = "chats:loaded"
	ChatCreated  EventType = "chats:created"
	ChatRenamed  EventType = "chats:renamed"
	ChatDeleted  EventType = "chats:deleted"
	ChatSelected EventType = "chats:selected"

	// Conversation events
	HistoryLoaded   EventType = "chat:history_loaded"
	MessageAppended EventType = "chat:message_appended"
	SendStarted     EventType = "chat:send_started"
	SendFinished    EventType = "chat:send_finished"
	ReplyDropped    EventType = "chat:reply_dropped"

	// System events
	SystemError EventType = "system:error"
)

// Event represents an event in the system
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// EventHandler is a function that handles events
type EventHandler func(event Event)

// Publisher is the emitting half of the bus.
type Publisher interface {
	Emit(eventType EventType, data interface{})
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(EventType, interface{}) {}

// EventBus provides event-driven communication between components
type EventBus struct {
	handlers map[EventType][]EventHandler
	all      []EventHandler
	mutex    sync.RWMutex
	inflight sync.WaitGroup
	logger   *zap.Logger
}

// NewEventBus creates a new event bus. A nil logger discards handler panics.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
		logger:   logger,
	}
}

// Subscribe adds an event handler for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives every event
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.all = append(eb.all, handler)
}

// Unsubscribe removes all handlers for a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	delete(eb.handlers, eventType)
}

// Emit publishes an event to all registered handlers
func (eb *EventBus) Emit(eventType EventType, data interface{}) {
	eb.mutex.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[eventType])+len(eb.all))
	handlers = append(handlers, eb.handlers[eventType]...)
	handlers = append(handlers, eb.all...)
	eb.mutex.RUnlock()

	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	// Handlers run in their own goroutines so a slow subscriber never blocks
	// the controller.
	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h EventHandler) {
			defer eb.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic",
						zap.String("event", string(eventType)),
						zap.Any("panic", r))
				}
			}()
			h(event)
		}(handler)
	}
}

// Close waits for running handlers to return.
func (eb *EventBus) Close() {
	eb.inflight.Wait()
}

// EmitError emits a system error event
func (eb *EventBus) EmitError(err error) {
	eb.Emit(SystemError, map[string]string{
		"error": err.Error(),
	})
}
