package playback

// Backend identifies which transport is authoritative.
type Backend int

const (
	BackendLocal Backend = iota
	BackendRemote
)

func (b Backend) String() string {
	switch b {
	case BackendLocal:
		return "Local"
	case BackendRemote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// Intent is the play/pause axis of the playback state.
type Intent int

const (
	IntentCreated Intent = iota
	IntentPlaying
	IntentPaused
	IntentFinished
)

func (i Intent) String() string {
	switch i {
	case IntentCreated:
		return "Created"
	case IntentPlaying:
		return "Playing"
	case IntentPaused:
		return "Paused"
	case IntentFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// PlaybackState is the externally visible state. It is the cross product
// of Backend and Intent.
type PlaybackState int

const (
	StateCreated PlaybackState = iota
	StateCreatedCast
	StatePlayCast
	StatePlay
	StatePauseCast
	StatePause
	StateFinishedCast
	StateFinished
)

type axes struct {
	backend Backend
	intent  Intent
}

var stateAxes = map[PlaybackState]axes{
	StateCreated:      {BackendLocal, IntentCreated},
	StateCreatedCast:  {BackendRemote, IntentCreated},
	StatePlay:         {BackendLocal, IntentPlaying},
	StatePlayCast:     {BackendRemote, IntentPlaying},
	StatePause:        {BackendLocal, IntentPaused},
	StatePauseCast:    {BackendRemote, IntentPaused},
	StateFinished:     {BackendLocal, IntentFinished},
	StateFinishedCast: {BackendRemote, IntentFinished},
}

// StateOf maps a (backend, intent) pair back to its PlaybackState.
func StateOf(b Backend, i Intent) PlaybackState {
	for s, a := range stateAxes {
		if a.backend == b && a.intent == i {
			return s
		}
	}
	return StateCreated
}

// Backend returns the transport that is authoritative in s.
func (s PlaybackState) Backend() Backend {
	return stateAxes[s].backend
}

// Intent returns the play/pause component of s.
func (s PlaybackState) Intent() Intent {
	return stateAxes[s].intent
}

// IsCast reports whether the remote receiver is authoritative.
func (s PlaybackState) IsCast() bool {
	return s.Backend() == BackendRemote
}

func (s PlaybackState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCreatedCast:
		return "createdCast"
	case StatePlayCast:
		return "playCast"
	case StatePlay:
		return "play"
	case StatePauseCast:
		return "pauseCast"
	case StatePause:
		return "pause"
	case StateFinishedCast:
		return "finishedCast"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// localTimerStates and castTimerStates are the states in which the
// scheduler keeps a timer of the corresponding kind alive.
var (
	localTimerStates = []PlaybackState{StatePlay, StatePause, StateCreated}
	castTimerStates  = []PlaybackState{StatePlayCast, StatePauseCast, StateCreatedCast}
)

// Affordance is the icon currently shown on the play/pause button. It is
// the inverse of the last known playback intent.
type Affordance int

const (
	PlayIcon Affordance = iota
	PauseIcon
)

func (a Affordance) String() string {
	if a == PauseIcon {
		return "Pause"
	}
	return "Play"
}
