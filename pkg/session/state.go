package session

// State is a ProfilingSession phase. The only legal order is
// Idle -> WaitingForTarget -> [Handshaking -> Sampling] -> Finalizing -> Done;
// a session interrupted before the target shows up goes straight from
// WaitingForTarget to Finalizing.
type State int32

const (
	Idle State = iota
	WaitingForTarget
	Handshaking
	Sampling
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForTarget:
		return "waiting_for_target"
	case Handshaking:
		return "handshaking"
	case Sampling:
		return "sampling"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

var legal = map[State][]State{
	Idle:             {WaitingForTarget},
	WaitingForTarget: {Handshaking, Finalizing},
	Handshaking:      {Sampling, Finalizing},
	Sampling:         {Finalizing},
	Finalizing:       {Done},
}

func canTransition(from, to State) bool {
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}
