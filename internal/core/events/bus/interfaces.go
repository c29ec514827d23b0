package bus

import "time"

// EventBus is an in-process publish/subscribe channel for game events.
//
// Key characteristics:
//   - Type-based fan-out: listeners subscribe by Event.Type.
//   - Synchronous delivery: Emit calls every listener on the caller's goroutine,
//     in subscription order, and returns only after all of them ran.
//   - Error aggregation: a failing or panicking listener does not stop the
//     others; failures are joined and returned from Emit.
//   - Handles: On and Once return a Subscription whose Cancel unsubscribes,
//     including a Once listener that has not fired yet.
//   - Optional observability: metrics are produced only when observers are registered.
//
// All methods are safe for concurrent use.
type EventBus interface {
	// On registers listener for eventType.
	On(eventType string, listener Listener) Subscription
	// Once registers listener for a single delivery.
	Once(eventType string, listener Listener) Subscription
	// Off cancels the given Subscription. It is safe to call with nil.
	Off(Subscription) error
	// Emit delivers event to every listener currently subscribed to event.Type.
	Emit(event Event) error
	// Clear removes every listener.
	Clear()
	// ListenerCount returns the number of active listeners for eventType.
	ListenerCount(eventType string) int

	// AddObserver registers an observer to receive delivery callbacks.
	AddObserver(obs Observer)
	// RemoveObserver unregisters a previously added observer.
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of the counters. Counters only move while at
	// least one observer is registered.
	Metrics() Metrics
}

// Event is a typed, timestamped record broadcast on the bus.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      map[string]any
}

// Listener is invoked per delivered event. A returned error is aggregated by Emit.
type Listener func(event Event) error

// Subscription is a registered listener bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the listener. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnEmit(eventType string, event Event)
	OnDelivered(eventType string, listeners int, err error, durationMicros int64)
}

type Metrics struct {
	Emitted           uint64
	DeliveredHandlers uint64
	Errors            uint64
	ListenersActive   uint64
	EventTypes        uint64
}

// Well-known event types.
const (
	EventCollision     = "collision"
	EventLevelComplete = "levelComplete"
	EventGameOver      = "gameOver"
	EventPlayerRespawn = "playerRespawn"
	EventItemCollected = "itemCollected"
	EventEnemyDefeated = "enemyDefeated"
	EventPlayerDied    = "playerDied"
)
