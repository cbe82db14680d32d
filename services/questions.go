package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
	"golang.org/x/sync/singleflight"
)

var (
	ErrResumeNotFound        = errors.New("resume not found")
	ErrNoQuestionsGenerated  = errors.New("no questions could be parsed from the model response")
	ErrGenerationUnavailable = errors.New("text generation is not configured")
)

const questionSystemPrompt = `You are a senior interviewer preparing a spoken mock interview.
Read the candidate's resume and write interview questions grounded in it.
Prefix every question with exactly one tag: [Technical], [Behavioral], [Project] or [Situational].
Each question must be one or two sentences that sound natural when read aloud.
Respond with JSON of the form {"questions": ["[Tag] question", ...]} and nothing else.`

// QuestionService creates interviews, reusing the per-resume question cache
// when it exists.
type QuestionService struct {
	repo         *repository.GORMRepository
	llm          TextGenerator
	maxQuestions int
	group        singleflight.Group
}

func NewQuestionService(repo *repository.GORMRepository, llm TextGenerator, maxQuestions int) *QuestionService {
	if maxQuestions <= 0 {
		maxQuestions = 5
	}
	return &QuestionService{repo: repo, llm: llm, maxQuestions: maxQuestions}
}

// CreateInterview creates an interview for an owned resume with its ordered
// question set.
func (s *QuestionService) CreateInterview(ctx context.Context, userID, resumeID string) (*models.Interview, error) {
	resume, err := s.repo.GetResumeForUser(ctx, resumeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}
	if resume == nil {
		return nil, ErrResumeNotFound
	}

	texts, err := s.questionsFor(ctx, resume)
	if err != nil {
		return nil, err
	}

	interview := &models.Interview{UserID: userID, ResumeID: resume.ID}
	if err := s.repo.CreateInterview(ctx, interview, texts); err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}
	return interview, nil
}

func (s *QuestionService) questionsFor(ctx context.Context, resume *models.Resume) ([]string, error) {
	cached, err := s.repo.GetGeneratedQuestions(ctx, resume.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached questions: %w", err)
	}
	if len(cached) > 0 {
		slog.Info("Reusing cached questions", "resume_id", resume.ID, "count", len(cached))
		return questionTexts(cached), nil
	}

	v, err, shared := s.group.Do(resume.ID, func() (any, error) {
		return s.generate(ctx, resume)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Question generation shared with a concurrent request", "resume_id", resume.ID)
	}
	return v.([]string), nil
}

func (s *QuestionService) generate(ctx context.Context, resume *models.Resume) ([]string, error) {
	if s.llm == nil {
		return nil, ErrGenerationUnavailable
	}

	prompt := fmt.Sprintf("Write %d interview questions for this resume.\n\nTitle: %s\n\nResume:\n%s",
		s.maxQuestions, resume.Title, resume.Content)
	raw, err := s.llm.GenerateText(ctx, TextRequest{
		System:      questionSystemPrompt,
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	texts := ParseQuestions(raw, s.maxQuestions)
	if len(texts) == 0 {
		slog.Error("Model response had no usable questions", "resume_id", resume.ID, "response_length", len(raw))
		return nil, ErrNoQuestionsGenerated
	}

	// A concurrent writer may have cached a set first; everyone uses the stored one.
	stored, created, err := s.repo.SaveGeneratedQuestions(ctx, resume.ID, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to cache questions: %w", err)
	}
	slog.Info("Questions generated", "resume_id", resume.ID, "count", len(stored), "cached", created)
	return questionTexts(stored), nil
}

func questionTexts(rows []models.GeneratedQuestion) []string {
	texts := make([]string, len(rows))
	for i, q := range rows {
		texts[i] = q.QuestionText
	}
	return texts
}

var (
	codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\\s*```$")
	// ordinal matches "1.", "2)", "Q3:", "-", "*" and bullet prefixes.
	ordinal = regexp.MustCompile(`^\s*(?:(?:[Qq](?:uestion)?\s*)?\d+\s*[.):\-]|[-*•])\s*`)
)

// ParseQuestions extracts question strings from a model response. It accepts
// a JSON array, a {"questions": [...]} object or plain numbered lines, with
// or without a surrounding code fence. Leading ordinals are stripped; tags
// such as "[Technical]" are kept. At most limit questions are returned when
// limit is positive.
func ParseQuestions(raw string, limit int) []string {
	text := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	items, ok := parseQuestionJSON(text)
	if !ok {
		items = strings.Split(text, "\n")
	}

	var out []string
	for _, item := range items {
		q := strings.TrimSpace(ordinal.ReplaceAllString(strings.TrimSpace(item), ""))
		q = strings.Trim(q, `"`)
		if q == "" || isHeading(q) {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func parseQuestionJSON(text string) ([]string, bool) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var obj struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err != nil || obj.Questions == nil {
			return nil, false
		}
		list = obj.Questions
	}

	items := make([]string, 0, len(list))
	for _, el := range list {
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			items = append(items, s)
			continue
		}
		var q struct {
			Question string `json:"question"`
			Text     string `json:"text"`
			Tag      string `json:"tag"`
		}
		if err := json.Unmarshal(el, &q); err != nil {
			continue
		}
		body := q.Question
		if body == "" {
			body = q.Text
		}
		if q.Tag != "" && body != "" && !strings.HasPrefix(body, "[") {
			body = "[" + strings.Trim(q.Tag, "[]") + "] " + body
		}
		items = append(items, body)
	}
	return items, true
}

// isHeading drops preamble lines such as "Here are your questions:".
func isHeading(line string) bool {
	return strings.HasSuffix(line, ":") && !strings.Contains(line, "?")
}
