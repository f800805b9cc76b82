package realtime

import "sync"

func NewRegistry() *Registry {
	return &Registry{handlers: map[EventType]map[uint64]Handler{}}
}

// Registry fans events out by type, handlers on EventAll see every event
type Registry struct {
	handlers map[EventType]map[uint64]Handler
	nextId   uint64
	mutex    sync.RWMutex
}

// Subscribe returns a function that removes the handler again
func (r *Registry) Subscribe(eventType EventType, handler Handler) func() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.nextId++
	id := r.nextId
	if r.handlers[eventType] == nil {
		r.handlers[eventType] = map[uint64]Handler{}
	}
	r.handlers[eventType][id] = handler
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mutex.Lock()
			defer r.mutex.Unlock()
			delete(r.handlers[eventType], id)
			if len(r.handlers[eventType]) == 0 {
				delete(r.handlers, eventType)
			}
		})
	}
}

// Dispatch calls the handlers outside of the lock so that they may
// subscribe or unsubscribe themselves
func (r *Registry) Dispatch(event Event) {
	r.mutex.RLock()
	handlers := make([]Handler, 0, len(r.handlers[event.Type])+len(r.handlers[EventAll]))
	for _, handler := range r.handlers[event.Type] {
		handlers = append(handlers, handler)
	}
	if event.Type != EventAll {
		for _, handler := range r.handlers[EventAll] {
			handlers = append(handlers, handler)
		}
	}
	r.mutex.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
}

// EventTypes lists the types with at least one handler
func (r *Registry) EventTypes() []EventType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	output := make([]EventType, 0, len(r.handlers))
	for eventType := range r.handlers {
		output = append(output, eventType)
	}
	return output
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	count := 0
	for _, handlers := range r.handlers {
		count += len(handlers)
	}
	return count
}

func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.handlers = map[EventType]map[uint64]Handler{}
}
