package platform

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
)

const (
	typeConnect    = "connect"
	typeDisconnect = "disconnect"
	typeJoin       = "join"
	typeLeave      = "leave"
	typeWatch      = "watch"
	typeUnwatch    = "unwatch"

	typeOK    = "ok"
	typeError = "error"
	typeEvent = "event"
)

// envelope is the single wire frame shape; unused fields are omitted.
type envelope struct {
	Type string `json:"type"`
	RID  string `json:"rid,omitempty"`

	User *domain.ParticipantIdentity `json:"user,omitempty"`

	CallType string        `json:"call_type,omitempty"`
	CallID   domain.CallID `json:"call_id,omitempty"`
	Create   bool          `json:"create,omitempty"`

	ChannelKind string        `json:"channel_type,omitempty"`
	ChannelID   domain.CallID `json:"channel_id,omitempty"`

	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

const codeUnauthorized = "unauthorized"

// RemoteError is an error frame returned by the platform for a request.
type RemoteError struct {
	Op      string
	ErrCode string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("platform %s: %s: %s", e.Op, e.ErrCode, e.Message)
}

func (e *RemoteError) Code() string { return e.ErrCode }

func (e *RemoteError) Unwrap() error {
	if e.ErrCode == codeUnauthorized {
		return core.ErrUnauthenticated
	}
	return core.ErrTransport
}
