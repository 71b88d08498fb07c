// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"servo-service/internal/model"
)

// allEvents is the subscription key that matches every event type
const allEvents model.EventType = "*"

// EventBus fans controller events out to subscribers
type EventBus struct {
	subscribers map[model.EventType][]chan *model.ControllerEvent
	events      chan *model.ControllerEvent
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan *model.ControllerEvent),
		events:      make(chan *model.ControllerEvent, 1000),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop ends Start
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.done) })
}

// Publish queues an event without blocking
func (eb *EventBus) Publish(event *model.ControllerEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe returns a channel receiving events of eventType
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan *model.ControllerEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan *model.ControllerEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// SubscribeAll returns a channel receiving every event
func (eb *EventBus) SubscribeAll() <-chan *model.ControllerEvent {
	return eb.Subscribe(allEvents)
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event *model.ControllerEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, key := range []model.EventType{event.EventType, allEvents} {
		for _, subscriber := range eb.subscribers[key] {
			select {
			case subscriber <- event:
			default:
				// Subscriber is slow, skip
			}
		}
	}
}
