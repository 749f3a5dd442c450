// Package realtime wraps the realtime platform with the connect/join/watch
// primitives the session lifecycle is built from.
package realtime

import (
	"context"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns connect and disconnect of the video and chat clients.
// It keeps no state: every client it returns belongs to the caller.
type ConnectionManager struct {
	Platform core.Platform
}

func NewConnectionManager(p core.Platform) *ConnectionManager {
	return &ConnectionManager{Platform: p}
}

func (m *ConnectionManager) ConnectVideo(ctx context.Context, id domain.ParticipantIdentity, token string) (core.VideoClient, error) {
	vc, err := m.Platform.ConnectVideo(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("connect video: %w", err)
	}
	log.Info().Str("module", "app.realtime").Str("user", id.UserID).Msg("video connected")
	return vc, nil
}

func (m *ConnectionManager) ConnectChat(ctx context.Context, id domain.ParticipantIdentity, token string) (core.ChatClient, error) {
	cc, err := m.Platform.ConnectChat(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("connect chat: %w", err)
	}
	log.Info().Str("module", "app.realtime").Str("user", id.UserID).Msg("chat connected")
	return cc, nil
}

// DisconnectVideo is a no-op for a nil client.
func (m *ConnectionManager) DisconnectVideo(ctx context.Context, vc core.VideoClient) error {
	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect video: %w", err)
	}
	log.Info().Str("module", "app.realtime").Str("user", vc.UserID()).Msg("video disconnected")
	return nil
}

// DisconnectChat is a no-op for a nil client.
func (m *ConnectionManager) DisconnectChat(ctx context.Context, cc core.ChatClient) error {
	if cc == nil {
		return nil
	}
	if err := cc.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect chat: %w", err)
	}
	log.Info().Str("module", "app.realtime").Str("user", cc.UserID()).Msg("chat disconnected")
	return nil
}
