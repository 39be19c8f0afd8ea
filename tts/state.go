package tts

// StateType represents the current state of the playback engine.
type StateType int

const (
	// StateIdle indicates no session is active.
	StateIdle StateType = iota
	// StateSpeaking indicates a chunk is being rendered.
	StateSpeaking
	// StatePaused indicates the in-flight chunk is paused.
	StatePaused
	// StateStopped indicates the session was stopped and cleaned up.
	StateStopped
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true if a session is speaking or paused.
func (s StateType) IsActive() bool {
	return s == StateSpeaking || s == StatePaused
}

// StateMachine manages state transitions for the playback engine.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func(from StateType)
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:     {StateSpeaking, StateStopped},
			StateSpeaking: {StateSpeaking, StatePaused, StateIdle, StateStopped},
			StatePaused:   {StateSpeaking, StatePaused, StateIdle, StateStopped},
			StateStopped:  {StateSpeaking, StateIdle, StateStopped},
		},
		onEnter: make(map[StateType]func(StateType)),
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	from := sm.current
	sm.current = to

	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn(from)
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func(from StateType)) {
	sm.onEnter[state] = fn
}
