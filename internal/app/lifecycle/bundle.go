package lifecycle

import "github.com/dkeye/Collab/internal/core"

// Bundle is the published view of one acquisition cycle. Resources are either
// all set or all nil.
type Bundle struct {
	Video        core.VideoClient
	Call         core.Call
	Chat         core.ChatClient
	Channel      core.Channel
	Initializing bool
}

func (b Bundle) Ready() bool {
	return b.Video != nil && b.Call != nil && b.Chat != nil && b.Channel != nil
}

func (b Bundle) Empty() bool {
	return b.Video == nil && b.Call == nil && b.Chat == nil && b.Channel == nil
}

type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateReady
	StateTearingDown
)

func (s State) String() string {
	switch s {
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateTearingDown:
		return "tearing_down"
	default:
		return "idle"
	}
}
