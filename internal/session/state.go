package session

// State is a session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateNegotiating
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateNegotiating:
		return "Negotiating"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// allowed lists the states in which each method may run. Methods not
// listed are unknown.
var allowed = map[string][]State{
	"initialize":                {StateUninitialized},
	"initialized":               {StateNegotiating},
	"notifications/initialized": {StateNegotiating},
	"search":                    {StateReady},
	"tools/list":                {StateReady},
	"shutdown":                  {StateReady},
	"exit":                      {StateUninitialized, StateNegotiating, StateReady, StateClosing},
	"ping":                      {StateUninitialized, StateNegotiating, StateReady, StateClosing},
	"$/cancelRequest":           {StateUninitialized, StateNegotiating, StateReady, StateClosing},
	"notifications/cancelled":   {StateUninitialized, StateNegotiating, StateReady, StateClosing},
}

// permits reports whether method may run in state s, and whether the method
// is known at all.
func permits(method string, s State) (ok, known bool) {
	states, known := allowed[method]
	if !known {
		return false, false
	}
	for _, st := range states {
		if st == s {
			return true, true
		}
	}
	return false, true
}
