package session

import (
	"errors"
	"fmt"
)

// Close codes sent on the session channel.
const (
	CloseNormalClosure     = 1000
	CloseGoingAway         = 1001
	ClosePolicyViolation   = 1008
	CloseInternalServerErr = 1011
)

// Codes surfaced to the peer in error messages and close reasons.
const (
	CodeAuthFailed           = "auth-failed"
	CodeNotFoundOrForbidden  = "not-found-or-forbidden"
	CodeNoQuestions          = "no-questions"
	CodeSessionActive        = "session-active"
	CodeSynthesisUnavailable = "synthesis-unavailable"
	CodeTranscriptionFailed  = "transcription-failed"
	CodePersistenceFailed    = "persistence-failed"
	CodeAnswerTimeout        = "answer-timeout"
	CodeDisconnected         = "disconnected"
	CodeShuttingDown         = "server-shutdown"
	CodeUnexpected           = "unexpected"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrNoQuestions       = errors.New("interview has no questions")
)

// Error is a terminal session failure. State is where the machine stood when
// it failed.
type Error struct {
	Code      string
	CloseCode int
	State     State
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session %s in %s", e.Code, e.State)
	}
	return fmt.Sprintf("session %s in %s: %v", e.Code, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Notifiable reports whether the peer can still receive a message.
func (e *Error) Notifiable() bool {
	return e.Code != CodeDisconnected
}

func policy(code string, state State, err error) *Error {
	return &Error{Code: code, CloseCode: ClosePolicyViolation, State: state, Err: err}
}

func internal(code string, state State, err error) *Error {
	return &Error{Code: code, CloseCode: CloseInternalServerErr, State: state, Err: err}
}

// NewRejection builds a pre-accept refusal for conditions detected outside the
// orchestrator, like a session that is already live for the interview.
func NewRejection(code string, err error) *Error {
	return policy(code, Authenticating, err)
}
