package voice

// State is the coordinator's single voice state.
type State int

const (
	// StateIdle is the resting state.
	StateIdle State = iota
	// StateSpeaking means an utterance is in flight.
	StateSpeaking
	// StateListening means a recognition attempt is in flight.
	StateListening
	// StateProcessing means a transcript was handed to the caller, which
	// drives the next transition.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSpeaking:
		return "SPEAKING"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	default:
		return "UNKNOWN"
	}
}

// isValidTransition enforces the allowed state machine edges.
func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateSpeaking || to == StateListening
	case StateSpeaking:
		return to == StateIdle
	case StateListening:
		return to == StateProcessing || to == StateIdle
	case StateProcessing:
		return to == StateIdle || to == StateSpeaking || to == StateListening
	default:
		return false
	}
}
