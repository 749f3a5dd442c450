package lifecycle

import (
	"context"
	"sync"

	"github.com/dkeye/Collab/internal/app/realtime"
	"github.com/dkeye/Collab/internal/core"
	"github.com/rs/zerolog/log"
)

type phase int

const (
	phaseAcquiring phase = iota
	phaseReady
	phaseFailed
	phaseRetired
)

type resources struct {
	video   core.VideoClient
	call    core.Call
	chat    core.ChatClient
	channel core.Channel
}

// cycle is the resource record of one acquisition attempt. It is allocated
// per attempt, released at most once and never reused.
type cycle struct {
	id     uint64
	inputs Inputs
	// settled is closed once acquire has returned.
	settled chan struct{}
	phase   phase // guarded by Controller.mu

	mu          sync.Mutex
	res         resources
	releaseOnce sync.Once
}

func newCycle(id uint64, in Inputs) *cycle {
	return &cycle{id: id, inputs: in, settled: make(chan struct{})}
}

func (cy *cycle) record(fn func(*resources)) {
	cy.mu.Lock()
	defer cy.mu.Unlock()
	fn(&cy.res)
}

func (cy *cycle) bundle() Bundle {
	cy.mu.Lock()
	defer cy.mu.Unlock()
	return Bundle{
		Video:   cy.res.video,
		Call:    cy.res.call,
		Chat:    cy.res.chat,
		Channel: cy.res.channel,
	}
}

// acquire runs the ordered protocol. On failure everything acquired so far
// has been released before it returns.
func (cy *cycle) acquire(ctx context.Context, d *Deps) *AcquireError {
	sess := cy.inputs.Session

	cred, err := d.Tokens.FetchToken(ctx, sess.ID)
	if err != nil {
		return &AcquireError{Stage: StageToken, Err: err}
	}
	id := cred.Identity()

	vc, err := d.Connections.ConnectVideo(ctx, id, cred.Token)
	if err != nil {
		return cy.abort(ctx, d, StageVideoConnect, err)
	}
	cy.record(func(r *resources) { r.video = vc })

	call, err := realtime.JoinCall(ctx, vc, d.CallType, sess.CallID)
	if err != nil {
		return cy.abort(ctx, d, StageCallJoin, err)
	}
	cy.record(func(r *resources) { r.call = call })

	cc, err := d.Connections.ConnectChat(ctx, id, cred.Token)
	if err != nil {
		return cy.abort(ctx, d, StageChatConnect, err)
	}
	cy.record(func(r *resources) { r.chat = cc })

	ch, err := realtime.OpenChannel(ctx, cc, d.ChannelKind, sess.CallID)
	if err != nil {
		return cy.abort(ctx, d, StageChannelWatch, err)
	}
	cy.record(func(r *resources) { r.channel = ch })
	return nil
}

func (cy *cycle) abort(ctx context.Context, d *Deps, stage Stage, err error) *AcquireError {
	cy.release(ctx, d)
	return &AcquireError{Stage: stage, Err: err}
}

// release tears resources down in reverse acquisition order. Every step runs
// even when an earlier one fails. Only the first call does anything.
func (cy *cycle) release(ctx context.Context, d *Deps) {
	cy.releaseOnce.Do(func() {
		cy.mu.Lock()
		r := cy.res
		cy.res = resources{}
		cy.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.TeardownTimeout)
		defer cancel()

		logger := log.With().Str("module", "app.lifecycle").Uint64("cycle", cy.id).Logger()
		if err := realtime.LeaveCall(ctx, r.call); err != nil {
			logger.Error().Err(err).Msg("cleanup: leave call")
		}
		if err := d.Connections.DisconnectChat(ctx, r.chat); err != nil {
			logger.Error().Err(err).Msg("cleanup: disconnect chat")
		}
		if err := d.Connections.DisconnectVideo(ctx, r.video); err != nil {
			logger.Error().Err(err).Msg("cleanup: disconnect video")
		}
		logger.Debug().Msg("cycle released")
	})
}
