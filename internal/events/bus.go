// Package events is the in-process domain event bus. Transitions emit one
// event after their write commits; registered handlers run concurrently and
// their failures never reach the emitter.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handler consumes one event. A returned error or a panic is logged by the bus.
type Handler func(ctx context.Context, e Event) error

type registration struct {
	name    string
	handler Handler
}

type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]registration
	log      *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		handlers: make(map[Kind][]registration),
		log:      log,
	}
}

// On appends h to the handlers of kind. The name identifies the handler in logs.
func (b *Bus) On(kind Kind, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], registration{name: name, handler: h})
}

// OnAll registers h for every kind in kinds.
func (b *Bus) OnAll(kinds []Kind, name string, h Handler) {
	for _, k := range kinds {
		b.On(k, name, h)
	}
}

func (b *Bus) HandlerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Emit runs every handler registered for e.Kind() concurrently and returns
// once all of them have finished. It never fails: handler errors and panics
// are logged with the event kind and handler name. A handler that never
// returns blocks Emit.
func (b *Bus) Emit(ctx context.Context, e Event) {
	b.mu.RLock()
	regs := b.handlers[e.Kind()]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	meta := e.Metadata()
	b.log.Debug("→ Dispatching event", "kind", e.Kind(), "event_id", meta.ID, "handlers", len(snapshot))

	var wg sync.WaitGroup
	wg.Add(len(snapshot))
	for _, reg := range snapshot {
		go func(reg registration) {
			defer wg.Done()
			start := time.Now()
			if err := b.invoke(ctx, reg, e); err != nil {
				b.log.Error("Event handler failed",
					"kind", e.Kind(), "event_id", meta.ID, "handler", reg.name,
					"duration", time.Since(start), "error", err)
			}
		}(reg)
	}
	wg.Wait()

	b.log.Debug("← Event dispatched", "kind", e.Kind(), "event_id", meta.ID)
}

func (b *Bus) invoke(ctx context.Context, reg registration, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return reg.handler(ctx, e)
}
