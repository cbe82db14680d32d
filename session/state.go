package session

import "fmt"

// State is a step of the per-session state machine. The RUNNING phase is the
// Ask..Persist cycle, repeated once per question.
type State int

const (
	Authenticating State = iota
	Loading
	Ask
	Synthesize
	AwaitAnswer
	Transcribe
	Persist
	Completed
	Failed
)

var stateNames = map[State]string{
	Authenticating: "authenticating",
	Loading:        "loading",
	Ask:            "ask",
	Synthesize:     "synthesize",
	AwaitAnswer:    "await_answer",
	Transcribe:     "transcribe",
	Persist:        "persist",
	Completed:      "completed",
	Failed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

var transitions = map[State][]State{
	Authenticating: {Loading, Failed},
	Loading:        {Ask, Failed},
	Ask:            {Synthesize, Failed},
	Synthesize:     {AwaitAnswer, Failed},
	AwaitAnswer:    {Transcribe, Failed},
	Transcribe:     {Persist, Failed},
	Persist:        {Ask, Completed, Failed},
}

// CanTransition reports whether the table allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
