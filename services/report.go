package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
	"golang.org/x/sync/singleflight"
)

const reportTimeout = 2 * time.Minute

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrNoAnswers         = errors.New("interview has no answers yet")
)

const reportSystemPrompt = `You are an experienced interview coach writing feedback for a candidate after a spoken mock interview.
Write the report in markdown with these sections: Summary, Strengths, Areas to Improve, Delivery, Next Steps.
Quote or paraphrase the candidate's answers when you judge them. Be specific, honest and encouraging.
In Delivery, interpret the speaking rate (about 120 to 160 words per minute is comfortable), the silence ratio
and, when present, the stability scores (lower is steadier).`

// AnswerMetrics is the per-answer breakdown returned with a report.
type AnswerMetrics struct {
	QuestionID   string                 `json:"question_id"`
	Position     int                    `json:"position"`
	QuestionText string                 `json:"question_text"`
	AnswerText   string                 `json:"answer_text"`
	Speech       *metrics.SpeechMetrics `json:"speech,omitempty"`
}

type Report struct {
	Analysis *models.Analysis `json:"analysis"`
	Answers  []AnswerMetrics  `json:"answers"`
}

// ReportService builds the feedback report for an interview once and serves
// the stored copy afterwards.
type ReportService struct {
	repo  *repository.GORMRepository
	llm   TextGenerator
	group singleflight.Group
}

func NewReportService(repo *repository.GORMRepository, llm TextGenerator) *ReportService {
	return &ReportService{repo: repo, llm: llm}
}

// FetchReport returns the stored analysis for an owned interview, generating
// and storing it on first use.
func (s *ReportService) FetchReport(ctx context.Context, userID, interviewID string) (*Report, error) {
	interview, err := s.repo.GetInterviewForUser(ctx, interviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview: %w", err)
	}
	if interview == nil {
		return nil, ErrInterviewNotFound
	}

	questions, err := s.repo.GetQuestionsWithAnswers(ctx, interview.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	breakdown, speech := answerMetrics(questions)

	analysis, err := s.repo.GetAnalysis(ctx, interview.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if analysis != nil {
		return &Report{Analysis: analysis, Answers: breakdown}, nil
	}

	// Waiters share the flight, so it must outlive the caller that started it.
	v, err, _ := s.group.Do(interview.ID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		return s.generate(flightCtx, interview.ID, questions, speech)
	})
	if err != nil {
		return nil, err
	}
	return &Report{Analysis: v.(*models.Analysis), Answers: breakdown}, nil
}

func (s *ReportService) generate(ctx context.Context, interviewID string, questions []models.Question, speech []metrics.SpeechMetrics) (*models.Analysis, error) {
	// A request that finished between the first check and this flight already stored it.
	if existing, err := s.repo.GetAnalysis(ctx, interviewID); err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	answered := 0
	for _, q := range questions {
		if q.Answer != nil {
			answered++
		}
	}
	if answered == 0 {
		return nil, ErrNoAnswers
	}
	if s.llm == nil {
		return nil, ErrGenerationUnavailable
	}

	video, err := s.repo.GetVideoAnalysis(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video analysis: %w", err)
	}

	analysis := &models.Analysis{InterviewID: interviewID}
	if len(speech) > 0 {
		rates := make([]float64, len(speech))
		ratios := make([]float64, len(speech))
		for i, m := range speech {
			rates[i] = m.SpeechRate
			ratios[i] = m.SilenceRatio
		}
		rate, ratio := metrics.Mean(rates), metrics.Mean(ratios)
		analysis.SpeechRate = &rate
		analysis.SilenceRatio = &ratio
	}
	if video != nil {
		gaze, expression, posture := video.GazeStability, video.ExpressionStability, video.PostureStability
		analysis.GazeStability = &gaze
		analysis.ExpressionStability = &expression
		analysis.PostureStability = &posture
	}

	feedback, err := s.llm.GenerateText(ctx, TextRequest{
		System:      reportSystemPrompt,
		Prompt:      reportPrompt(questions, analysis),
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	analysis.FeedbackText = stripCodeFence(feedback)

	stored, created, err := s.repo.CreateOrGetAnalysis(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	slog.Info("Report generated", "interview_id", interviewID, "answered", answered, "created", created)
	return stored, nil
}

// answerMetrics returns the breakdown per question plus the speech metrics of
// every answer that carries transcription timing.
func answerMetrics(questions []models.Question) ([]AnswerMetrics, []metrics.SpeechMetrics) {
	breakdown := make([]AnswerMetrics, 0, len(questions))
	var speech []metrics.SpeechMetrics
	for _, q := range questions {
		item := AnswerMetrics{QuestionID: q.ID, Position: q.Position, QuestionText: q.QuestionText}
		if q.Answer != nil {
			item.AnswerText = q.Answer.AnswerText
			if t := decodeTranscription(q.Answer); t != nil {
				m := metrics.Speech(t)
				item.Speech = &m
				speech = append(speech, m)
			}
		}
		breakdown = append(breakdown, item)
	}
	return breakdown, speech
}

func decodeTranscription(a *models.Answer) *metrics.Transcription {
	if len(a.Transcription) == 0 {
		return nil
	}
	var t metrics.Transcription
	if err := json.Unmarshal(a.Transcription, &t); err != nil {
		slog.Warn("Stored transcription is not readable", "answer_id", a.ID, "error", err)
		return nil
	}
	if len(t.Segments) == 0 {
		return nil
	}
	return &t
}

func reportPrompt(questions []models.Question, a *models.Analysis) string {
	var b strings.Builder
	b.WriteString("Interview transcript:\n\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q.QuestionText)
		switch {
		case q.Answer == nil:
			b.WriteString("A: (not answered)\n\n")
		case strings.TrimSpace(q.Answer.AnswerText) == "":
			b.WriteString("A: (no intelligible answer)\n\n")
		default:
			fmt.Fprintf(&b, "A: %s\n\n", q.Answer.AnswerText)
		}
	}

	b.WriteString("Delivery metrics:\n")
	if a.SpeechRate != nil {
		fmt.Fprintf(&b, "- Speaking rate: %.1f words per minute\n", *a.SpeechRate)
		fmt.Fprintf(&b, "- Silence ratio: %.1f%%\n", *a.SilenceRatio)
	} else {
		b.WriteString("- Speech timing: unavailable\n")
	}
	if a.GazeStability != nil {
		fmt.Fprintf(&b, "- Gaze stability: %.4f\n", *a.GazeStability)
		fmt.Fprintf(&b, "- Expression stability: %.4f\n", *a.ExpressionStability)
		fmt.Fprintf(&b, "- Posture stability: %.4f\n", *a.PostureStability)
	} else {
		b.WriteString("- Video telemetry: not submitted\n")
	}
	return b.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
