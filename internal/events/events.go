// Package events defines the structured events a workout session emits and
// an ordered single-listener bus that delivers them.
package events

import (
	"sync"
	"time"
)

// Type tags an event.
type Type string

const (
	WorkoutStarted      Type = "workoutStarted"
	WorkoutPaused       Type = "workoutPaused"
	WorkoutResumed      Type = "workoutResumed"
	WorkoutStopped      Type = "workoutStopped"
	PreparationComplete Type = "preparationComplete"
	RestStarted         Type = "restStarted"
	RestComplete        Type = "restComplete"
	SetFinished         Type = "setFinished"
	RoundFinished       Type = "roundFinished"
	ExerciseChanged     Type = "exerciseChanged"
	RoundChanged        Type = "roundChanged"
	TimerUpdate         Type = "timerUpdate"
	TimerComplete       Type = "timerComplete"
	WorkoutComplete     Type = "workoutComplete"
)

// Event is the envelope delivered to the listener.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Listener receives events in emission order.
type Listener func(Event)

// Bus queues events and delivers them to one listener in order.
//
// Emitters call Emit while holding their own lock so queue order matches the
// order of state changes, then call Flush after unlocking. A listener may
// call back into emitters; events it causes are appended to the queue and
// delivered by the flush loop already running.
type Bus struct {
	mu       sync.Mutex
	queue    []Event
	listener Listener
	now      func() time.Time

	flushing sync.Mutex
}

// NewBus creates a bus stamping events with now. A nil now uses time.Now.
func NewBus(now func() time.Time) *Bus {
	if now == nil {
		now = time.Now
	}
	return &Bus{now: now}
}

// Subscribe replaces the listener. A nil listener discards events.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
}

// Emit queues an event without delivering it.
func (b *Bus) Emit(t Type, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, Event{Type: t, Timestamp: b.now(), Data: data})
}

// Flush delivers queued events. If another goroutine (or an outer frame of
// this one) is already flushing, the events are left for that loop.
func (b *Bus) Flush() {
	for {
		if !b.flushing.TryLock() {
			return
		}
		for {
			b.mu.Lock()
			if len(b.queue) == 0 {
				b.mu.Unlock()
				break
			}
			ev := b.queue[0]
			b.queue = b.queue[1:]
			l := b.listener
			b.mu.Unlock()

			if l != nil {
				l(ev)
			}
		}
		b.flushing.Unlock()

		// An emit may have landed between the empty check and the unlock.
		b.mu.Lock()
		pending := len(b.queue) > 0
		b.mu.Unlock()
		if !pending {
			return
		}
	}
}

// Publish queues and flushes a single event.
func (b *Bus) Publish(t Type, data map[string]any) {
	b.Emit(t, data)
	b.Flush()
}

// Pending returns the number of undelivered events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
