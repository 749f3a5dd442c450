package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
)

var errBoom = errors.New("boom")

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.list() {
		if e == event {
			n++
		}
	}
	return n
}

type fakePlatform struct {
	rec *recorder

	videoErr, chatErr, joinErr, watchErr, leaveErr error

	// gates blocks Join for a call id until the channel is closed.
	gates   map[domain.CallID]chan struct{}
	started chan domain.CallID

	mu     sync.Mutex
	videos []*fakeVideo
	chats  []*fakeChat
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		rec:     &recorder{},
		gates:   make(map[domain.CallID]chan struct{}),
		started: make(chan domain.CallID, 4),
	}
}

func (p *fakePlatform) ConnectVideo(_ context.Context, id domain.ParticipantIdentity, _ string) (core.VideoClient, error) {
	p.rec.add("video.connect:%s", id.UserID)
	if p.videoErr != nil {
		return nil, p.videoErr
	}
	v := &fakeVideo{p: p, user: id.UserID}
	p.mu.Lock()
	p.videos = append(p.videos, v)
	p.mu.Unlock()
	return v, nil
}

func (p *fakePlatform) ConnectChat(_ context.Context, id domain.ParticipantIdentity, _ string) (core.ChatClient, error) {
	p.rec.add("chat.connect:%s", id.UserID)
	if p.chatErr != nil {
		return nil, p.chatErr
	}
	c := &fakeChat{p: p, user: id.UserID}
	p.mu.Lock()
	p.chats = append(p.chats, c)
	p.mu.Unlock()
	return c, nil
}

type fakeVideo struct {
	p            *fakePlatform
	user         string
	disconnected atomic.Int32

	mu    sync.Mutex
	calls []*fakeCall
}

func (v *fakeVideo) UserID() string { return v.user }

func (v *fakeVideo) Call(callType string, id domain.CallID) core.Call {
	c := &fakeCall{p: v.p, typ: callType, id: id}
	v.mu.Lock()
	v.calls = append(v.calls, c)
	v.mu.Unlock()
	return c
}

func (v *fakeVideo) Disconnect(context.Context) error {
	v.disconnected.Add(1)
	v.p.rec.add("video.disconnect:%s", v.user)
	return nil
}

type fakeCall struct {
	p      *fakePlatform
	typ    string
	id     domain.CallID
	leaves atomic.Int32
}

func (c *fakeCall) Type() string      { return c.typ }
func (c *fakeCall) ID() domain.CallID { return c.id }

func (c *fakeCall) Join(ctx context.Context, create bool) error {
	if g, ok := c.p.gates[c.id]; ok {
		c.p.started <- c.id
		select {
		case <-g:
		case <-ctx.Done():
			c.p.rec.add("call.join.cancelled:%s", c.id)
			return ctx.Err()
		}
	}
	c.p.rec.add("call.join:%s:%s:%t", c.typ, c.id, create)
	return c.p.joinErr
}

func (c *fakeCall) Leave(context.Context) error {
	c.leaves.Add(1)
	c.p.rec.add("call.leave:%s", c.id)
	return c.p.leaveErr
}

type fakeChat struct {
	p            *fakePlatform
	user         string
	disconnected atomic.Int32
}

func (c *fakeChat) UserID() string { return c.user }

func (c *fakeChat) Channel(kind string, id domain.CallID) core.Channel {
	return &fakeChannel{p: c.p, kind: kind, id: id, events: make(chan core.ChannelEvent)}
}

func (c *fakeChat) Disconnect(context.Context) error {
	c.disconnected.Add(1)
	c.p.rec.add("chat.disconnect:%s", c.user)
	return nil
}

type fakeChannel struct {
	p      *fakePlatform
	kind   string
	id     domain.CallID
	events chan core.ChannelEvent
}

func (c *fakeChannel) Kind() string                       { return c.kind }
func (c *fakeChannel) ID() domain.CallID                  { return c.id }
func (c *fakeChannel) Events() <-chan core.ChannelEvent   { return c.events }
func (c *fakeChannel) StopWatching(context.Context) error { return nil }

func (c *fakeChannel) Watch(context.Context) error {
	c.p.rec.add("channel.watch:%s:%s", c.kind, c.id)
	return c.p.watchErr
}

type captureReporter struct {
	mu   sync.Mutex
	errs []*AcquireError
}

func (r *captureReporter) Report(_ domain.SessionID, err *AcquireError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *captureReporter) reported() []*AcquireError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*AcquireError(nil), r.errs...)
}
