package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
)

type Stage string

const (
	StageToken        Stage = "token"
	StageVideoConnect Stage = "video_connect"
	StageCallJoin     Stage = "call_join"
	StageChatConnect  Stage = "chat_connect"
	StageChannelWatch Stage = "channel_watch"
)

// AcquireError is the failure of one acquisition step.
type AcquireError struct {
	Stage Stage
	Err   error
}

func (e *AcquireError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *AcquireError) Unwrap() error { return e.Err }

type coder interface{ Code() string }

// Reporter decides how acquisition failures reach the user.
type Reporter interface {
	Report(session domain.SessionID, err *AcquireError)
}

const (
	ReportLog    = "log"
	ReportNotify = "notify"
)

func NewReporter(mode string) (Reporter, error) {
	switch mode {
	case "", ReportLog:
		return LogReporter{}, nil
	case ReportNotify:
		return NewNotifyReporter(16), nil
	default:
		return nil, fmt.Errorf("unknown report mode %q", mode)
	}
}

// LogReporter only logs; the caller is not interrupted.
type LogReporter struct{}

func (LogReporter) Report(session domain.SessionID, err *AcquireError) {
	ev := log.Error().
		Str("module", "app.lifecycle").
		Str("session", string(session)).
		Str("stage", string(err.Stage)).
		Err(err.Err)
	var c coder
	if errors.As(err.Err, &c) {
		ev = ev.Str("code", c.Code())
	}
	ev.Msg("realtime init failed")
}

type Notification struct {
	SessionID domain.SessionID
	Stage     Stage
	Message   string
	At        time.Time
}

// NotifyReporter logs and additionally queues a user-facing notification.
// Notifications are dropped when nobody drains them.
type NotifyReporter struct {
	LogReporter
	notes chan Notification
}

func NewNotifyReporter(buffer int) *NotifyReporter {
	return &NotifyReporter{notes: make(chan Notification, buffer)}
}

func (r *NotifyReporter) Report(session domain.SessionID, err *AcquireError) {
	r.LogReporter.Report(session, err)
	msg := err.Err.Error()
	if msg == "" {
		msg = "Failed to join video call"
	}
	select {
	case r.notes <- Notification{SessionID: session, Stage: err.Stage, Message: msg, At: time.Now()}:
	default:
		log.Warn().Str("module", "app.lifecycle").Str("session", string(session)).Msg("notification dropped")
	}
}

func (r *NotifyReporter) Notifications() <-chan Notification { return r.notes }
