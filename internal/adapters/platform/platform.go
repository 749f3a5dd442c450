// Package platform is a websocket client for the hosted realtime service.
// One socket backs each video or chat client.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const eventBuffer = 64

type Platform struct {
	BaseURL string
	APIKey  string
	Dialer  *websocket.Dialer
}

func New(baseURL, apiKey string) *Platform {
	return &Platform{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Dialer:  websocket.DefaultDialer,
	}
}

func (p *Platform) open(ctx context.Context, path string, id domain.ParticipantIdentity, token string, onEvent func(envelope)) (*conn, error) {
	u, err := url.Parse(p.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("platform url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", p.APIKey)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	c, err := dial(ctx, p.Dialer, u.String(), header, onEvent)
	if err != nil {
		return nil, err
	}
	if err := c.request(ctx, envelope{Type: typeConnect, User: &id}); err != nil {
		c.Close()
		return nil, err
	}
	log.Debug().Str("module", "adapters.platform").Str("path", path).Str("user", id.UserID).Msg("connected")
	return c, nil
}

func (p *Platform) ConnectVideo(ctx context.Context, id domain.ParticipantIdentity, token string) (core.VideoClient, error) {
	c, err := p.open(ctx, "/video", id, token, nil)
	if err != nil {
		return nil, err
	}
	return &videoClient{conn: c, user: id}, nil
}

func (p *Platform) ConnectChat(ctx context.Context, id domain.ParticipantIdentity, token string) (core.ChatClient, error) {
	cc := &chatClient{user: id, channels: make(map[channelKey]*channel)}
	c, err := p.open(ctx, "/chat", id, token, cc.dispatch)
	if err != nil {
		return nil, err
	}
	cc.conn = c
	return cc, nil
}

type videoClient struct {
	conn *conn
	user domain.ParticipantIdentity
}

func (v *videoClient) UserID() string { return v.user.UserID }

func (v *videoClient) Call(callType string, id domain.CallID) core.Call {
	return &call{conn: v.conn, typ: callType, id: id}
}

func (v *videoClient) Disconnect(ctx context.Context) error { return v.conn.shutdown(ctx) }

type call struct {
	conn *conn
	typ  string
	id   domain.CallID
}

func (c *call) Type() string      { return c.typ }
func (c *call) ID() domain.CallID { return c.id }

func (c *call) Join(ctx context.Context, create bool) error {
	return c.conn.request(ctx, envelope{Type: typeJoin, CallType: c.typ, CallID: c.id, Create: create})
}

func (c *call) Leave(ctx context.Context) error {
	return c.conn.request(ctx, envelope{Type: typeLeave, CallType: c.typ, CallID: c.id})
}

type channelKey struct {
	kind string
	id   domain.CallID
}

type chatClient struct {
	conn *conn
	user domain.ParticipantIdentity

	mu       sync.Mutex
	channels map[channelKey]*channel
	closed   bool
}

func (c *chatClient) UserID() string { return c.user.UserID }

func (c *chatClient) Channel(kind string, id domain.CallID) core.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := channelKey{kind: kind, id: id}
	if ch, ok := c.channels[key]; ok {
		return ch
	}
	ch := &channel{client: c, kind: kind, id: id, events: make(chan core.ChannelEvent, eventBuffer)}
	if c.closed {
		close(ch.events)
	} else {
		c.channels[key] = ch
	}
	return ch
}

func (c *chatClient) Disconnect(ctx context.Context) error {
	err := c.conn.shutdown(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		for _, ch := range c.channels {
			close(ch.events)
		}
		c.channels = map[channelKey]*channel{}
	}
	return err
}

// dispatch runs on the read pump; a slow consumer loses events.
func (c *chatClient) dispatch(env envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelKey{kind: env.ChannelKind, id: env.ChannelID}]
	if !ok || !ch.watching.Load() {
		return
	}
	ev := core.ChannelEvent{Type: env.Event, ChannelID: env.ChannelID, Payload: env.Payload}
	select {
	case ch.events <- ev:
	default:
		log.Warn().Str("module", "adapters.platform").Str("channel_id", string(env.ChannelID)).Msg("channel event dropped")
	}
}

type channel struct {
	client   *chatClient
	kind     string
	id       domain.CallID
	events   chan core.ChannelEvent
	watching atomic.Bool
}

func (ch *channel) Kind() string                     { return ch.kind }
func (ch *channel) ID() domain.CallID                { return ch.id }
func (ch *channel) Events() <-chan core.ChannelEvent { return ch.events }

func (ch *channel) Watch(ctx context.Context) error {
	// Events may follow the ok frame immediately.
	ch.watching.Store(true)
	err := ch.client.conn.request(ctx, envelope{Type: typeWatch, ChannelKind: ch.kind, ChannelID: ch.id})
	if err != nil {
		ch.watching.Store(false)
		return err
	}
	return nil
}

func (ch *channel) StopWatching(ctx context.Context) error {
	ch.watching.Store(false)
	return ch.client.conn.request(ctx, envelope{Type: typeUnwatch, ChannelKind: ch.kind, ChannelID: ch.id})
}
