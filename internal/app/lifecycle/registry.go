package lifecycle

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// cycleRegistry tracks cycles that still have work pending: acquiring, or
// retired and waiting for teardown. idle is closed whenever it is empty.
type cycleRegistry struct {
	mu       sync.RWMutex
	busy     map[uint64]*cycle
	retiring int
	idle     chan struct{}
}

func newCycleRegistry() *cycleRegistry {
	idle := make(chan struct{})
	close(idle)
	return &cycleRegistry{busy: make(map[uint64]*cycle), idle: idle}
}

func (r *cycleRegistry) Bind(cy *cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.busy) == 0 {
		r.idle = make(chan struct{})
	}
	r.busy[cy.id] = cy
	log.Debug().Str("module", "app.lifecycle").Uint64("cycle", cy.id).Msg("bound cycle")
}

// Retire keeps cy busy until its teardown has run.
func (r *cycleRegistry) Retire(cy *cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.busy) == 0 {
		r.idle = make(chan struct{})
	}
	if _, ok := r.busy[cy.id]; !ok {
		r.busy[cy.id] = cy
	}
	r.retiring++
	log.Debug().Str("module", "app.lifecycle").Uint64("cycle", cy.id).Msg("retired cycle")
}

func (r *cycleRegistry) Unbind(cy *cycle, retired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if retired {
		r.retiring--
	}
	delete(r.busy, cy.id)
	if len(r.busy) == 0 {
		close(r.idle)
	}
	log.Debug().Str("module", "app.lifecycle").Uint64("cycle", cy.id).Msg("unbind cycle")
}

func (r *cycleRegistry) Retiring() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retiring
}

func (r *cycleRegistry) Idle() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idle
}
