package core

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Collab/internal/domain"
)

// Platform is the opaque realtime capability: it hands out connected video
// and chat clients for an identity.
type Platform interface {
	ConnectVideo(ctx context.Context, id domain.ParticipantIdentity, token string) (VideoClient, error)
	ConnectChat(ctx context.Context, id domain.ParticipantIdentity, token string) (ChatClient, error)
}

type VideoClient interface {
	UserID() string
	// Call returns a handle; nothing is sent until Join.
	Call(callType string, id domain.CallID) Call
	Disconnect(ctx context.Context) error
}

type Call interface {
	Type() string
	ID() domain.CallID
	Join(ctx context.Context, create bool) error
	Leave(ctx context.Context) error
}

type ChatClient interface {
	UserID() string
	Channel(kind string, id domain.CallID) Channel
	// Disconnect also closes every channel opened through the client.
	Disconnect(ctx context.Context) error
}

type Channel interface {
	Kind() string
	ID() domain.CallID
	Watch(ctx context.Context) error
	// Events delivers updates for a watched channel. Closed on disconnect.
	Events() <-chan ChannelEvent
	StopWatching(ctx context.Context) error
}

type ChannelEvent struct {
	Type      string          `json:"event"`
	ChannelID domain.CallID   `json:"channel_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
