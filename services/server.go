package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/krshsl/praxis/interviewer/repository"
	"github.com/krshsl/praxis/interviewer/session"
	ws "github.com/krshsl/praxis/interviewer/websocket"
)

var ErrSpeechUnavailable = errors.New("speech synthesis is not configured")

// Server holds all server dependencies
type Server struct {
	config *Config
	db     *repository.Database
	repo   *repository.GORMRepository

	hub     *ws.Hub
	janitor *Janitor
	audio   *AudioCache

	authService        *AuthService
	authEndpoints      *AuthEndpoints
	resumeEndpoints    *ResumeEndpoints
	interviewEndpoints *InterviewEndpoints
	sessions           *SessionHandler

	base       context.Context
	cancelBase context.CancelFunc
}

// adapters are the external backends a server talks to.
type adapters struct {
	llm         TextGenerator
	synth       session.Synthesizer
	transcriber session.Transcriber
	recordings  *RecordingService
	audio       *AudioCache
}

// NewServer wires every service. Missing AI keys degrade the matching
// feature instead of failing startup.
func NewServer(ctx context.Context, config *Config, db *repository.Database) (*Server, error) {
	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	repo := repository.NewGORMRepository(db.DB)
	recordings, err := NewRecordingService(ctx, config.Storage, repo)
	if err != nil {
		return nil, err
	}

	audio, err := NewAudioCache(config.Speech.CacheDir)
	if err != nil {
		slog.Warn("Audio cache disabled", "error", err)
		audio = nil
	}

	return newServer(config, db, repo, adapters{
		llm:         newTextGenerator(ctx, config.AI),
		synth:       newSynthesizer(config, audio),
		audio:       audio,
		transcriber: NewWhisperTranscriber(config.AI.OpenAIAPIKey, config.Speech.TranscriptionModel, config.Speech.Language),
		recordings:  recordings,
	})
}

func newServer(config *Config, db *repository.Database, repo *repository.GORMRepository, a adapters) (*Server, error) {
	artifacts, err := NewFileArtifactStore(config.Artifacts.Dir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  config,
		db:      db,
		repo:    repo,
		hub:     ws.NewHub(),
		janitor: NewJanitor(artifacts, config.Artifacts.GracePeriod),
		audio:   a.audio,
	}
	s.base, s.cancelBase = context.WithCancel(context.Background())

	s.authService = NewAuthService(repo, config.JWT)
	s.authEndpoints = NewAuthEndpoints(s.authService)
	s.resumeEndpoints = NewResumeEndpoints(repo)
	s.interviewEndpoints = NewInterviewEndpoints(
		repo,
		NewQuestionService(repo, a.llm, config.Interview.MaxQuestions),
		NewReportService(repo, a.llm),
		NewVideoService(repo),
		a.recordings,
		config.Interview.MaxTelemetryBytes,
	)

	orchestrator := session.NewOrchestrator(session.Deps{
		Store:         repo,
		Auth:          s.authService,
		Synthesizer:   a.synth,
		Transcriber:   a.transcriber,
		Artifacts:     artifacts,
		Janitor:       s.janitor,
		AnswerTimeout: config.WebSocket.AnswerTimeout,
		Logger:        slog.Default(),
	})
	s.sessions = NewSessionHandler(s.base, orchestrator, s.hub, config.WebSocket)

	return s, nil
}

func newTextGenerator(ctx context.Context, cfg AIConfig) TextGenerator {
	var (
		gen TextGenerator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		gen, err = NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	default:
		gen, err = NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if err != nil {
		slog.Warn("Text generation disabled", "provider", cfg.Provider, "error", err)
		return nil
	}
	slog.Info("Text generation initialized", "provider", cfg.Provider)
	return gen
}

type unavailableSynthesizer struct{}

func (unavailableSynthesizer) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, ErrSpeechUnavailable
}

func newSynthesizer(config *Config, cache *AudioCache) session.Synthesizer {
	var (
		backend SpeechBackend
		err     error
	)
	switch strings.ToLower(config.Speech.TTSProvider) {
	case "openai":
		backend, err = NewOpenAISpeech(config.AI.OpenAIAPIKey)
	default:
		backend, err = NewElevenLabsService(config.Speech.ElevenLabsKey, config.Speech.ElevenLabsModel)
	}
	if err != nil {
		slog.Warn("Speech synthesis disabled, questions will be sent as text only", "provider", config.Speech.TTSProvider, "error", err)
		return unavailableSynthesizer{}
	}

	slog.Info("Speech synthesis initialized", "provider", config.Speech.TTSProvider)
	return NewCachedSynthesizer(backend, cache, config.Speech.VoiceGender)
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		s.authEndpoints.RegisterRoutes(r)

		// The session authenticates itself before the upgrade.
		r.Method(http.MethodGet, "/interviews/{id}/session", s.sessions)

		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			s.resumeEndpoints.RegisterRoutes(r)
			s.interviewEndpoints.RegisterRoutes(r)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains live sessions and flushes
// pending artifact cleanup.
func (s *Server) Run(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	sweepAge := s.config.Artifacts.GracePeriod + time.Hour
	if err := s.janitor.StartSweeper(s.config.Artifacts.SweepSchedule, sweepAge); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.CancelAll()
	s.cancelBase()
	if err := s.hub.Wait(shutdownCtx); err != nil {
		slog.Error("Sessions did not finish before shutdown timeout", "live", s.hub.Count())
	}
	s.janitor.Stop()

	slog.Info("Server exited")
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}

// CheckOrigin validates the origin of WebSocket connections against a comma
// separated allow list. An empty list denies everything.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "up"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		dbStatus = "down"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	body := s.runtimeStats()
	body["status"] = status
	body["database"] = dbStatus
	writeJSON(w, code, body)
}

func (s *Server) runtimeStats() map[string]any {
	stats := map[string]any{
		"live_sessions":    s.hub.Count(),
		"pending_cleanups": s.janitor.Pending(),
	}
	if s.audio == nil {
		return stats
	}
	clips, size, err := s.audio.Stats()
	if err != nil {
		slog.Warn("Failed to read audio cache stats", "error", err)
		return stats
	}
	stats["audio_cache"] = map[string]any{"clips": clips, "bytes": size}
	return stats
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": "1.0.0"})
}
