// Package lifecycle drives the acquisition and teardown of the realtime
// resources (video call + chat channel) for one session and caller.
//
// Every input change retires the current cycle and, if the gate passes,
// starts a new one. A retired cycle is torn down once it settles, so stale
// cycles clean up after themselves instead of being cancelled.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Collab/internal/app/realtime"
	"github.com/dkeye/Collab/internal/core"
	"github.com/rs/zerolog/log"
)

const DefaultTeardownTimeout = 5 * time.Second

type Deps struct {
	Tokens      core.TokenProvider
	Connections *realtime.ConnectionManager
	Reporter    Reporter

	CallType        string
	ChannelKind     string
	TeardownTimeout time.Duration
}

type Controller struct {
	ctx  context.Context
	deps Deps

	mu       sync.Mutex
	inputs   Inputs
	observed bool
	seq      uint64
	current  *cycle
	bundle   Bundle
	closed   bool
	updates  chan Bundle
	drained  sync.Once

	cycles *cycleRegistry
}

// New returns an idle controller. ctx bounds the network steps of every
// cycle; teardown outlives its cancellation.
func New(ctx context.Context, deps Deps) *Controller {
	if deps.CallType == "" {
		deps.CallType = realtime.DefaultCallType
	}
	if deps.ChannelKind == "" {
		deps.ChannelKind = realtime.DefaultChannelKind
	}
	if deps.TeardownTimeout <= 0 {
		deps.TeardownTimeout = DefaultTeardownTimeout
	}
	if deps.Reporter == nil {
		deps.Reporter = LogReporter{}
	}
	return &Controller{
		ctx:     ctx,
		deps:    deps,
		bundle:  Bundle{Initializing: true},
		updates: make(chan Bundle, 1),
		cycles:  newCycleRegistry(),
	}
}

// Observe feeds the latest inputs. Inputs equal to the previous ones are ignored.
func (c *Controller) Observe(in Inputs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.observed && c.inputs.Equal(in) {
		return
	}
	c.inputs = in
	c.observed = true
	c.retireLocked()

	if ok, reason := Gate(in); !ok {
		log.Debug().Str("module", "app.lifecycle").Str("reason", reason).Msg("gate closed")
		// While the session loads, Initializing keeps its previous value.
		c.publishLocked(Bundle{Initializing: in.LoadingSession && c.bundle.Initializing})
		return
	}

	c.seq++
	cy := newCycle(c.seq, in)
	c.current = cy
	c.cycles.Bind(cy)
	c.publishLocked(Bundle{Initializing: true})
	log.Info().
		Str("module", "app.lifecycle").
		Uint64("cycle", cy.id).
		Str("session", string(in.Session.ID)).
		Str("call_id", string(in.Session.CallID)).
		Msg("acquisition started")
	go c.run(cy)
}

func (c *Controller) run(cy *cycle) {
	aerr := cy.acquire(c.ctx, &c.deps)
	close(cy.settled)

	c.mu.Lock()
	stale := c.current != cy
	c.mu.Unlock()
	if aerr != nil && !(stale && c.cancelled(aerr)) {
		c.deps.Reporter.Report(cy.inputs.Session.ID, aerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != cy {
		// Retired while in flight; the retiring goroutine owns teardown.
		return
	}
	c.cycles.Unbind(cy, false)
	if aerr != nil {
		cy.phase = phaseFailed
		c.publishLocked(Bundle{})
		return
	}
	cy.phase = phaseReady
	c.publishLocked(cy.bundle())
	log.Info().Str("module", "app.lifecycle").Uint64("cycle", cy.id).Msg("bundle ready")
}

// cancelled reports whether err comes from the controller's context ending
// rather than from the platform.
func (c *Controller) cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || c.ctx.Err() != nil
}

// retireLocked detaches the current cycle and schedules its teardown for
// when it settles.
func (c *Controller) retireLocked() {
	cy := c.current
	if cy == nil {
		return
	}
	c.current = nil
	cy.phase = phaseRetired
	c.cycles.Retire(cy)
	go func() {
		<-cy.settled
		cy.release(c.ctx, &c.deps)
		c.cycles.Unbind(cy, true)
	}()
}

func (c *Controller) publishLocked(b Bundle) {
	c.bundle = b
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- b:
	default:
	}
}

// Snapshot returns the currently published bundle.
func (c *Controller) Snapshot() Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundle
}

// Updates yields published bundles. Only the latest unread one is kept.
// Closed by Close once every cycle has settled.
func (c *Controller) Updates() <-chan Bundle { return c.updates }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		switch c.current.phase {
		case phaseAcquiring:
			return StateAcquiring
		case phaseReady:
			return StateReady
		}
	}
	if c.cycles.Retiring() > 0 {
		return StateTearingDown
	}
	return StateIdle
}

// Wait blocks until no cycle is acquiring or tearing down.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.cycles.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the live bundle and waits for all cycles to settle.
// The controller ignores further inputs.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.retireLocked()
		c.publishLocked(Bundle{})
		c.closed = true
	}
	c.mu.Unlock()

	if err := c.Wait(ctx); err != nil {
		return err
	}
	c.drained.Do(func() {
		close(c.updates)
		log.Info().Str("module", "app.lifecycle").Msg("controller closed")
	})
	return nil
}
