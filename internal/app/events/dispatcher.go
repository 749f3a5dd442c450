// Package events runs the handlers behind the event-dispatch webhook.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrQueueFull = errors.New("event queue full")

type Event struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type Handler func(ctx context.Context, ev Event) error

// Dispatcher queues events and handles them one at a time on Run's goroutine.
type Dispatcher struct {
	queue chan Event

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		queue:    make(chan Event, size),
		handlers: make(map[string]Handler),
	}
}

func (d *Dispatcher) Handle(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Enqueue accepts ev without blocking. Events nobody handles are dropped and
// reported as not handled.
func (d *Dispatcher) Enqueue(ev Event) (bool, error) {
	d.mu.RLock()
	_, ok := d.handlers[ev.Name]
	d.mu.RUnlock()
	if !ok {
		log.Warn().Str("module", "app.events").Str("event", ev.Name).Msg("no handler, ignoring")
		return false, nil
	}
	select {
	case d.queue <- ev:
		return true, nil
	default:
		return true, ErrQueueFull
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().Str("module", "app.events").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.events").Msg("event loop stopped")
			return nil
		case ev := <-d.queue:
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	d.mu.RLock()
	h := d.handlers[ev.Name]
	d.mu.RUnlock()
	if h == nil {
		return
	}
	if err := h(ctx, ev); err != nil {
		log.Error().Err(err).Str("module", "app.events").Str("event", ev.Name).Msg("handler failed")
		return
	}
	log.Info().Str("module", "app.events").Str("event", ev.Name).Msg("event handled")
}
