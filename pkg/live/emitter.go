package live

import (
	"reflect"
	"sync"
)

// Handler receives events for one topic. The concrete event type is the
// one documented on the topic's event struct.
type Handler func(Event)

// Emitter is the session's event bus: a closed set of topics, handlers
// invoked synchronously in subscription order. There is no replay; a
// handler only sees events published after it subscribed.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// NewEmitter creates an empty bus.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Topic][]Handler)}
}

// On subscribes h to topic. Returns the emitter for chaining.
func (e *Emitter) On(topic Topic, h Handler) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[topic] = append(e.handlers[topic], h)
	return e
}

// Off removes a previously subscribed handler, matched by function
// identity. Returns the emitter for chaining.
func (e *Emitter) Off(topic Topic, h Handler) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	want := reflect.ValueOf(h).Pointer()
	hs := e.handlers[topic]
	for i, cur := range hs {
		if reflect.ValueOf(cur).Pointer() == want {
			e.handlers[topic] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	return e
}

// Emit delivers ev to every handler of its topic, in subscription
// order, on the caller's goroutine.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	hs := e.handlers[ev.topic()]
	e.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}
