package lifecycle

import "github.com/dkeye/Collab/internal/domain"

// Inputs is everything the controller reacts to.
type Inputs struct {
	Session        *domain.Session
	LoadingSession bool
	IsHost         bool
	IsParticipant  bool
}

func (in Inputs) Equal(o Inputs) bool {
	return in.LoadingSession == o.LoadingSession &&
		in.IsHost == o.IsHost &&
		in.IsParticipant == o.IsParticipant &&
		in.Session.Equal(o.Session)
}

// Gate reports whether an acquisition cycle may start for in.
// The reason is empty when it may.
func Gate(in Inputs) (bool, string) {
	switch {
	case in.Session == nil:
		return false, "no session"
	case in.Session.CallID == "":
		return false, "session has no call id"
	case !in.IsHost && !in.IsParticipant:
		return false, "caller is neither host nor participant"
	case in.Session.IsCompleted():
		return false, "session completed"
	case in.LoadingSession:
		return false, "session loading"
	}
	return true, ""
}
