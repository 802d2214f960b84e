package reactive

import (
	"sort"
	"sync"
)

// Dispatcher runs listener callbacks. A nil Dispatcher delivers inline on
// the writer's goroutine.
type Dispatcher interface {
	Post(task func()) bool
}

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Listener observes a value change
type Listener[T any] func(old, new T)

// Signal is the interface for reactive values
type Signal[T any] interface {
	Get() T
	Set(T)
	Subscribe(fn Listener[T]) (unsubscribe func())
}

// State represents a reactive state value. Every Set notifies, even when the
// value did not change: writers publish events, not diffs.
type State[T any] struct {
	value T
	mu    sync.RWMutex

	subs       map[uint64]Listener[T]
	nextID     uint64
	subsMu     sync.RWMutex
	dispatcher Dispatcher
}

// NewState creates a new reactive state
func NewState[T any](initial T, d Dispatcher) *State[T] {
	return &State[T]{
		value:      initial,
		subs:       make(map[uint64]Listener[T]),
		dispatcher: d,
	}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and notifies subscribers
func (s *State[T]) Set(value T) {
	if debugLog != nil {
		debugLog("[State] Set called with value:", value)
	}

	s.mu.Lock()
	old := s.value
	s.value = value
	s.mu.Unlock()

	s.notify(old, value)
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	old := s.value
	s.value = fn(old)
	value := s.value
	s.mu.Unlock()

	if debugLog != nil {
		debugLog("[State] Update called, old:", old, "new:", value)
	}

	s.notify(old, value)
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (s *State[T]) Subscribe(fn Listener[T]) func() {
	if fn == nil {
		return func() {}
	}

	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	total := len(s.subs)
	s.subsMu.Unlock()

	if debugLog != nil {
		debugLog("[State] Subscribed listener", id, "total:", total)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered listeners
func (s *State[T]) SubscriberCount() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

// notify delivers to listeners in subscription order, outside all locks so
// listeners may read or write the state.
func (s *State[T]) notify(old, value T) {
	s.subsMu.RLock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.subs[id])
	}
	s.subsMu.RUnlock()

	if debugLog != nil {
		debugLog("[State] Notifying", len(listeners), "listeners")
	}

	for _, fn := range listeners {
		fn := fn
		if s.dispatcher == nil {
			fn(old, value)
			continue
		}
		if !s.dispatcher.Post(func() { fn(old, value) }) && debugLog != nil {
			debugLog("[State] Dispatcher rejected notification")
		}
	}
}
