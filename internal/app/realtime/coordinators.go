package realtime

import (
	"context"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCallType    = "livestream"
	DefaultChannelKind = "messaging"
)

// JoinCall joins the call keyed by callID, creating it if it does not exist yet.
func JoinCall(ctx context.Context, vc core.VideoClient, callType string, callID domain.CallID) (core.Call, error) {
	call := vc.Call(callType, callID)
	if err := call.Join(ctx, true); err != nil {
		return nil, fmt.Errorf("join call %s:%s: %w", callType, callID, err)
	}
	log.Info().Str("module", "app.realtime").Str("call_type", callType).Str("call_id", string(callID)).Msg("call joined")
	return call, nil
}

// LeaveCall is a no-op for a nil call.
func LeaveCall(ctx context.Context, call core.Call) error {
	if call == nil {
		return nil
	}
	if err := call.Leave(ctx); err != nil {
		return fmt.Errorf("leave call %s: %w", call.ID(), err)
	}
	log.Info().Str("module", "app.realtime").Str("call_id", string(call.ID())).Msg("call left")
	return nil
}

// OpenChannel watches the chat channel keyed by callID.
func OpenChannel(ctx context.Context, cc core.ChatClient, kind string, callID domain.CallID) (core.Channel, error) {
	ch := cc.Channel(kind, callID)
	if err := ch.Watch(ctx); err != nil {
		return nil, fmt.Errorf("watch channel %s:%s: %w", kind, callID, err)
	}
	log.Info().Str("module", "app.realtime").Str("kind", kind).Str("channel", string(callID)).Msg("channel watched")
	return ch, nil
}

// CloseChannel stops watching. Disconnecting the chat client closes channels
// as well, so this is only needed when the client stays connected.
func CloseChannel(ctx context.Context, ch core.Channel) error {
	if ch == nil {
		return nil
	}
	return ch.StopWatching(ctx)
}
