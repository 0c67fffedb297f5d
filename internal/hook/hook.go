package hook

import "sync"

// BeforeParse runs once per source file before the doc parser sees it.
const BeforeParse = "beforeParse"

// Event carries a file through the hook chain.
type Event struct {
	Filename string
	Source   string
}

// Handler receives an event and returns the event the host should continue with.
type Handler func(Event) Event

// Plugin contributes handlers to a registry.
type Plugin interface {
	Name() string
	Register(r *Registry)
}

// Registry holds named hook chains.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRegistry creates an empty registry and registers the given plugins in order.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{handlers: make(map[string][]Handler)}
	for _, p := range plugins {
		p.Register(r)
	}
	return r
}

// On appends a handler to the chain for name.
func (r *Registry) On(name string, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = append(r.handlers[name], h)
}

// Handlers returns a copy of the chain registered for name.
func (r *Registry) Handlers(name string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers[name]...)
}

// Emit runs the chain for name. Each handler gets the previous handler's
// result; an unknown name returns e unchanged.
func (r *Registry) Emit(name string, e Event) Event {
	for _, h := range r.Handlers(name) {
		e = h(e)
	}
	return e
}
