package scraper

// State is one step of a crawl session.
//
//	INIT ──► LOADING_PAGE ──► EXTRACTING_LISTINGS ──► CONTINUE ──► LOADING_PAGE
//	              │                    │
//	              └────────────────────┴──► STOP ──► DONE
//
// DONE is terminal.
type State string

const (
	StateInit       State = "INIT"
	StateLoading    State = "LOADING_PAGE"
	StateExtracting State = "EXTRACTING_LISTINGS"
	StateContinue   State = "CONTINUE"
	StateStop       State = "STOP"
	StateDone       State = "DONE"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateInit:       {StateLoading},
	StateLoading:    {StateExtracting, StateStop},
	StateExtracting: {StateContinue, StateStop},
	StateContinue:   {StateLoading, StateStop},
	StateStop:       {StateDone},
	// DONE is terminal
}

// IsTransitionAllowed reports whether moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s State) bool {
	_, ok := validTransitions[s]
	return !ok
}
