package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	SessionID string
	CallID    string
)

type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

const MaxTopicLen = 120

var (
	ErrTopicEmpty   = errors.New("topic empty")
	ErrTopicTooLong = errors.New("topic too long")
	ErrHostEmpty    = errors.New("host empty")
)

// Session is one scheduled, live or completed collaboration instance.
// CallID is assigned once and keys both the video call and the chat channel.
type Session struct {
	ID             SessionID     `json:"id"`
	CallID         CallID        `json:"callId"`
	Topic          string        `json:"topic"`
	Status         SessionStatus `json:"status"`
	HostID         string        `json:"hostId"`
	ParticipantIDs []string      `json:"participantIds"`
	CreatedAt      time.Time     `json:"createdAt"`
	StartsAt       *time.Time    `json:"startsAt,omitempty"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
}

// NewSession builds a session hosted by hostID. A start time in the future
// makes it scheduled, otherwise it is active right away.
func NewSession(hostID, topic string, startsAt *time.Time, now time.Time) (*Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrTopicEmpty
	}
	if len(topic) > MaxTopicLen {
		return nil, ErrTopicTooLong
	}
	if hostID == "" {
		return nil, ErrHostEmpty
	}
	s := &Session{
		ID:             SessionID(uuid.NewString()),
		CallID:         CallID(uuid.NewString()),
		Topic:          topic,
		Status:         StatusActive,
		HostID:         hostID,
		ParticipantIDs: []string{},
		CreatedAt:      now.UTC(),
	}
	if startsAt != nil && startsAt.After(now) {
		t := startsAt.UTC()
		s.StartsAt = &t
		s.Status = StatusScheduled
	}
	return s, nil
}

func (s *Session) IsCompleted() bool { return s.Status == StatusCompleted }

func (s *Session) HasParticipant(userID string) bool {
	return slices.Contains(s.ParticipantIDs, userID)
}

// RoleOf classifies userID relative to the session.
func (s *Session) RoleOf(userID string) Role {
	switch {
	case s == nil || userID == "":
		return RoleNone
	case s.HostID == userID:
		return RoleHost
	case s.HasParticipant(userID):
		return RoleParticipant
	default:
		return RoleNone
	}
}

// Equal reports whether two snapshots carry the same values.
// Participant order is ignored.
func (s *Session) Equal(o *Session) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ID != o.ID || s.CallID != o.CallID || s.Topic != o.Topic ||
		s.Status != o.Status || s.HostID != o.HostID ||
		!s.CreatedAt.Equal(o.CreatedAt) ||
		!timeEqual(s.StartsAt, o.StartsAt) || !timeEqual(s.EndedAt, o.EndedAt) {
		return false
	}
	if len(s.ParticipantIDs) != len(o.ParticipantIDs) {
		return false
	}
	a := slices.Clone(s.ParticipantIDs)
	b := slices.Clone(o.ParticipantIDs)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
