package bus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewEvent builds an Event stamped with the current time.
func NewEvent(typ, source string, data map[string]any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

// subscription implements Subscription.
type subscription struct {
	id        string
	eventType string
	listener  Listener
	once      bool

	mu     sync.Mutex
	active bool
	cancel func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }

func (s *subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.deactivate()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// deactivate flips the subscription off and reports whether it was active.
func (s *subscription) deactivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.active
	s.active = false
	return was
}

// inMemoryBus is a thread-safe implementation of EventBus.
type inMemoryBus struct {
	mu sync.RWMutex
	// listeners: eventType -> subscriptions in subscription order
	listeners map[string][]*subscription
	metrics   Metrics
	observers map[Observer]struct{}
}

// New creates a new EventBus instance.
func New() EventBus {
	return &inMemoryBus{
		listeners: make(map[string][]*subscription),
		observers: make(map[Observer]struct{}),
	}
}

func (b *inMemoryBus) On(eventType string, listener Listener) Subscription {
	return b.subscribe(eventType, listener, false)
}

func (b *inMemoryBus) Once(eventType string, listener Listener) Subscription {
	return b.subscribe(eventType, listener, true)
}

func (b *inMemoryBus) subscribe(eventType string, listener Listener, once bool) *subscription {
	s := &subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		listener:  listener,
		once:      once,
		active:    true,
	}
	s.cancel = func() { b.remove(s) }

	b.mu.Lock()
	b.listeners[eventType] = append(b.listeners[eventType], s)
	b.mu.Unlock()
	return s
}

func (b *inMemoryBus) Off(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// remove drops s from its bucket; the bucket is freed once empty.
func (b *inMemoryBus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[s.eventType]
	for i, existing := range subs {
		if existing == s {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.listeners, s.eventType)
		return
	}
	b.listeners[s.eventType] = subs
}

func (b *inMemoryBus) Emit(event Event) error {
	start := time.Now()
	if event.Timestamp.IsZero() {
		event.Timestamp = start
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.listeners[event.Type]))
	copy(subs, b.listeners[event.Type])
	observers := make([]Observer, 0, len(b.observers))
	for obs := range b.observers {
		observers = append(observers, obs)
	}
	b.mu.RUnlock()

	for _, obs := range observers {
		obs.OnEmit(event.Type, event)
	}

	var errs []error
	delivered := 0
	for _, s := range subs {
		if s.once {
			// claim the single delivery before running so a re-entrant emit cannot fire it twice
			if !s.deactivate() {
				continue
			}
			b.remove(s)
		} else if !s.IsActive() {
			continue
		}
		delivered++
		if err := invoke(s, event); err != nil {
			errs = append(errs, err)
		}
	}
	all := errors.Join(errs...)

	if len(observers) > 0 {
		dur := time.Since(start).Microseconds()
		for _, obs := range observers {
			obs.OnDelivered(event.Type, delivered, all, dur)
		}
		b.mu.Lock()
		b.metrics.Emitted++
		b.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			b.metrics.Errors++
		}
		b.metrics.EventTypes = uint64(len(b.listeners))
		var active uint64
		for _, bucket := range b.listeners {
			active += uint64(len(bucket))
		}
		b.metrics.ListenersActive = active
		b.mu.Unlock()
	}
	return all
}

// invoke runs one listener, turning a panic into an error.
func invoke(s *subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q listener %s: %v", ErrListenerPanic, event.Type, s.id, r)
		}
	}()
	if err = s.listener(event); err != nil {
		return fmt.Errorf("%q listener %s: %w", event.Type, s.id, err)
	}
	return nil
}

func (b *inMemoryBus) Clear() {
	b.mu.Lock()
	old := b.listeners
	b.listeners = make(map[string][]*subscription)
	b.mu.Unlock()

	for _, bucket := range old {
		for _, s := range bucket {
			s.deactivate()
		}
	}
}

func (b *inMemoryBus) ListenerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[eventType])
}

func (b *inMemoryBus) AddObserver(obs Observer) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *inMemoryBus) RemoveObserver(obs Observer) {
	b.mu.Lock()
	delete(b.observers, obs)
	b.mu.Unlock()
}

func (b *inMemoryBus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}
