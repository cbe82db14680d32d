// Package session runs one voice interview over a single bidirectional
// channel. A session asks each question in order, plays the synthesized
// audio, waits for exactly one recorded answer, transcribes and stores it,
// then moves on. Turns never overlap.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/krshsl/praxis/interviewer/models"
	"gorm.io/datatypes"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	// GetInterviewForUser returns nil when the interview does not exist or
	// belongs to someone else.
	GetInterviewForUser(ctx context.Context, interviewID, userID string) (*models.Interview, error)
	GetQuestions(ctx context.Context, interviewID string) ([]models.Question, error)
	CreateAnswer(ctx context.Context, answer *models.Answer) (*models.Answer, bool, error)
}

type Authenticator interface {
	VerifyAccessToken(ctx context.Context, token string) (*models.User, error)
}

// Synthesizer turns question text into audio. voiceKey selects a stable voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceKey string) ([]byte, error)
}

// Transcriber turns a stored audio artifact into text with segment timing.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*metrics.Transcription, error)
}

type Deps struct {
	Store       Store
	Auth        Authenticator
	Synthesizer Synthesizer
	Transcriber Transcriber
	Artifacts   ArtifactStore
	Janitor     Janitor

	// AnswerTimeout bounds AWAIT_ANSWER. Zero waits until the peer leaves.
	AnswerTimeout time.Duration
	Logger        *slog.Logger
}

type Orchestrator struct {
	deps Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{deps: deps}
}

// Session is one live run of the turn loop for a single interview.
type Session struct {
	ID        string
	Interview *models.Interview
	User      *models.User
	Questions []models.Question

	deps     Deps
	log      *slog.Logger
	state    State
	history  []State
	manifest *Manifest
	answered int
}

// Outcome summarizes a finished Run.
type Outcome struct {
	State    State
	Answered int
	Err      *Error
}

// Open authenticates the caller, checks interview ownership and loads the
// question list. It runs before the channel is accepted, so every error it
// returns is a *Error with a policy close code (or a server error code when
// the store itself failed).
func (o *Orchestrator) Open(ctx context.Context, token, interviewID string) (*Session, error) {
	s := &Session{
		ID:       uuid.NewString(),
		deps:     o.deps,
		state:    Authenticating,
		history:  []State{Authenticating},
		manifest: NewManifest(o.deps.Artifacts),
	}
	s.log = o.deps.Logger.With("session_id", s.ID, "interview_id", interviewID)

	if token == "" {
		return nil, policy(CodeAuthFailed, Authenticating, ErrMissingCredential)
	}
	user, err := o.deps.Auth.VerifyAccessToken(ctx, token)
	if err != nil {
		s.log.Warn("Session authentication failed", "error", err)
		return nil, policy(CodeAuthFailed, Authenticating, err)
	}

	interview, err := o.deps.Store.GetInterviewForUser(ctx, interviewID, user.ID)
	if err != nil {
		return nil, internal(CodeUnexpected, Authenticating, fmt.Errorf("failed to load interview: %w", err))
	}
	if interview == nil {
		s.log.Warn("Session rejected, interview not found or not owned", "user_id", user.ID)
		return nil, policy(CodeNotFoundOrForbidden, Authenticating, nil)
	}
	s.User = user
	s.Interview = interview
	s.log = s.log.With("user_id", user.ID)

	s.transition(Loading)
	questions, err := o.deps.Store.GetQuestions(ctx, interview.ID)
	if err != nil {
		return nil, internal(CodeUnexpected, Loading, fmt.Errorf("failed to load questions: %w", err))
	}
	if len(questions) == 0 {
		s.log.Warn("Session rejected, interview has no questions")
		return nil, policy(CodeNoQuestions, Loading, ErrNoQuestions)
	}
	s.Questions = questions

	s.log.Info("Session opened", "total_questions", len(questions))
	return s, nil
}

func (s *Session) State() State {
	return s.state
}

// History is every state the session has entered, in order.
func (s *Session) History() []State {
	return append([]State(nil), s.history...)
}

func (s *Session) transition(next State) {
	if !s.state.CanTransition(next) {
		panic(fmt.Sprintf("invalid session transition %s -> %s", s.state, next))
	}
	s.state = next
	s.history = append(s.history, next)
}

// Run drives the session to COMPLETED or FAILED. Artifact cleanup for the
// failure paths has finished by the time Run returns.
func (s *Session) Run(ctx context.Context, ch Channel) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Session panicked", "panic", r, "state", s.state.String())
			out = s.fail(ch, internal(CodeUnexpected, s.state, fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := ch.SendJSON(ctx, systemMessage(StatusConnected, "")); err != nil {
		return s.fail(ch, s.channelError(ctx, err))
	}

	for i := range s.Questions {
		if serr := s.turn(ctx, ch, i); serr != nil {
			return s.fail(ch, serr)
		}
	}
	return s.complete(ch)
}

func (s *Session) turn(ctx context.Context, ch Channel, i int) *Error {
	q := s.Questions[i]
	number := i + 1
	log := s.log.With("question_number", number)

	s.transition(Ask)
	if err := ch.SendJSON(ctx, questionMessage(q.QuestionText, number, len(s.Questions))); err != nil {
		return s.channelError(ctx, err)
	}

	s.transition(Synthesize)
	audio, err := s.synthesize(ctx, q.QuestionText)
	if err != nil {
		log.Warn("Speech synthesis failed, continuing without audio", "error", err)
		if err := ch.SendJSON(ctx, warningMessage(CodeSynthesisUnavailable, "Audio is unavailable for this question.")); err != nil {
			return s.channelError(ctx, err)
		}
	} else if err := ch.SendBinary(ctx, audio); err != nil {
		return s.channelError(ctx, err)
	}

	s.transition(AwaitAnswer)
	in, serr := s.await(ctx, ch)
	if serr != nil {
		return serr
	}
	if err := ch.SendJSON(ctx, systemMessage(StatusProcessing, "")); err != nil {
		return s.channelError(ctx, err)
	}

	s.transition(Transcribe)
	path, transcription := s.transcribe(ctx, log, q, in)
	if transcription == nil {
		if err := ch.SendJSON(ctx, warningMessage(CodeTranscriptionFailed, "Your answer could not be transcribed and was recorded as empty.")); err != nil {
			// The answer is still persisted below; the channel error surfaces on the next send.
			log.Warn("Failed to send transcription warning", "error", err)
		}
	}

	s.transition(Persist)
	answer := &models.Answer{QuestionID: q.ID}
	if path != "" {
		answer.AudioPath = &path
	}
	if transcription != nil {
		answer.AnswerText = strings.TrimSpace(transcription.Text)
		if raw, err := json.Marshal(transcription); err == nil {
			answer.Transcription = datatypes.JSON(raw)
		}
	}

	_, created, err := s.deps.Store.CreateAnswer(ctx, answer)
	if err != nil {
		if path != "" {
			if rmErr := s.manifest.Remove(path); rmErr != nil {
				log.Error("Failed to delete artifact of unsaved answer", "path", path, "error", rmErr)
			}
		}
		return internal(CodePersistenceFailed, Persist, fmt.Errorf("failed to persist answer: %w", err))
	}
	if !created {
		log.Warn("Answer already recorded for question, keeping the first one", "question_id", q.ID)
	}
	s.answered++
	log.Info("Answer recorded", "question_id", q.ID, "answer_length", len(answer.AnswerText))
	return nil
}

func (s *Session) synthesize(ctx context.Context, text string) (audio []byte, err error) {
	cleaned := CleanForSpeech(text)
	if cleaned == "" {
		return nil, errors.New("nothing to synthesize after cleaning")
	}
	err = isolate(func() error {
		var synthErr error
		audio, synthErr = s.deps.Synthesizer.Synthesize(ctx, cleaned, s.Interview.ResumeID)
		return synthErr
	})
	if err == nil && len(audio) == 0 {
		err = errors.New("synthesizer returned no audio")
	}
	return audio, err
}

// await blocks for the next inbound frame, bounded by AnswerTimeout.
func (s *Session) await(ctx context.Context, ch Channel) (Inbound, *Error) {
	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.deps.AnswerTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, s.deps.AnswerTimeout)
	}
	defer cancel()

	in, err := ch.Receive(waitCtx)
	if err == nil {
		return in, nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return Inbound{}, policy(CodeAnswerTimeout, AwaitAnswer, fmt.Errorf("no answer within %s", s.deps.AnswerTimeout))
	}
	return Inbound{}, s.channelError(ctx, err)
}

// transcribe never fails the turn. A nil transcription means the answer is
// recorded as empty.
func (s *Session) transcribe(ctx context.Context, log *slog.Logger, q models.Question, in Inbound) (string, *metrics.Transcription) {
	audio, err := DecodeAnswer(in)
	if err != nil {
		log.Warn("Failed to decode answer payload", "error", err)
		return "", nil
	}

	name := fmt.Sprintf("%s_%s_%s.webm", s.Interview.ID, q.ID, uuid.NewString())
	var path string
	if err := isolate(func() error {
		var saveErr error
		path, saveErr = s.deps.Artifacts.Save(name, audio)
		return saveErr
	}); err != nil {
		log.Warn("Failed to write answer artifact", "error", err)
		return "", nil
	}
	s.manifest.Add(path)

	var result *metrics.Transcription
	if err := isolate(func() error {
		var trErr error
		result, trErr = s.deps.Transcriber.Transcribe(ctx, path)
		return trErr
	}); err != nil {
		log.Warn("Transcription failed, recording empty answer", "path", path, "error", err)
		return path, nil
	}
	if result == nil {
		return path, nil
	}
	return path, result
}

// channelError classifies a send or receive failure.
func (s *Session) channelError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return &Error{Code: CodeShuttingDown, CloseCode: CloseGoingAway, State: s.state, Err: ctx.Err()}
	}
	return &Error{Code: CodeDisconnected, CloseCode: CloseGoingAway, State: s.state, Err: err}
}

// fail is also reached from the panic recovery in Run, possibly after the
// session already completed. The peer has then been closed normally and only
// the artifact cleanup is left to do.
func (s *Session) fail(ch Channel, serr *Error) Outcome {
	closed := s.state == Completed
	if !s.state.Terminal() {
		s.transition(Failed)
	}

	level := slog.LevelError
	if serr.Code == CodeDisconnected || serr.Code == CodeShuttingDown {
		level = slog.LevelWarn
	}
	s.log.Log(context.Background(), level, "Session failed", "code", serr.Code, "failed_in", serr.State.String(), "answered", s.answered, "error", serr.Err)

	if serr.Notifiable() && !closed {
		// Best effort; the peer may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ch.SendJSON(ctx, fatalMessage(serr.Code)); err != nil {
			s.log.Debug("Failed to notify peer of session failure", "error", err)
		}
		cancel()
	}
	if !closed {
		if err := ch.Close(serr.CloseCode, serr.Code); err != nil {
			s.log.Debug("Failed to close channel", "error", err)
		}
	}

	if failed := s.manifest.Cleanup(s.log); failed > 0 {
		s.log.Error("Some answer artifacts could not be deleted", "failed", failed)
	}
	return Outcome{State: s.state, Answered: s.answered, Err: serr}
}

func (s *Session) complete(ch Channel) Outcome {
	s.transition(Completed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ch.SendJSON(ctx, systemMessage(StatusFinished, "")); err != nil {
		s.log.Warn("Failed to send finished status", "error", err)
	}
	if err := ch.Close(CloseNormalClosure, StatusFinished); err != nil {
		s.log.Debug("Failed to close channel", "error", err)
	}

	if pending := s.manifest.Pending(); len(pending) > 0 {
		s.deps.Janitor.Schedule(s.ID, pending)
	}
	s.log.Info("Session completed", "answered", s.answered)
	return Outcome{State: Completed, Answered: s.answered}
}

// isolate runs an adapter call and turns a panic into an error so adapter
// faults stay on the non-fatal path.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return fn()
}
