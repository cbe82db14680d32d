package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func answerWithTiming(t *testing.T, questionID, text string, segments ...metrics.Segment) *models.Answer {
	t.Helper()
	raw, err := json.Marshal(metrics.Transcription{Text: text, Segments: segments})
	require.NoError(t, err)
	return &models.Answer{QuestionID: questionID, AnswerText: text, Transcription: datatypes.JSON(raw)}
}

func TestReportServiceGeneratesOnce(t *testing.T) {
	repo := newTestRepository(t)
	user := createUser(t, repo, "report@example.com")
	interview := createInterview(t, repo, user.ID, "[Technical] Q1?", "[Behavioral] Q2?")

	ctx := context.Background()
	_, _, err := repo.CreateAnswer(ctx, answerWithTiming(t, interview.Questions[0].ID, "one two three four",
		metrics.Segment{Start: 0, End: 1, Text: "one two"},
		metrics.Segment{Start: 2, End: 4, Text: "three four"},
	))
	require.NoError(t, err)

	gen := &fakeGenerator{response: "```markdown\n## Summary\nSolid answers.\n```"}
	svc := NewReportService(repo, gen)

	var wg sync.WaitGroup
	reports := make([]*Report, 4)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.FetchReport(ctx, user.ID, interview.ID)
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}
	wg.Wait()

	again, err := svc.FetchReport(ctx, user.ID, interview.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls(), "the report is generated at most once")
	for _, r := range reports {
		require.NotNil(t, r)
		assert.Equal(t, again.Analysis.ID, r.Analysis.ID)
		assert.Equal(t, "## Summary\nSolid answers.", r.Analysis.FeedbackText)
	}

	require.NotNil(t, again.Analysis.SpeechRate)
	assert.InDelta(t, 60.0, *again.Analysis.SpeechRate, 0.001)
	assert.InDelta(t, 25.0, *again.Analysis.SilenceRatio, 0.001)
	assert.Nil(t, again.Analysis.GazeStability, "no video was submitted")

	require.Len(t, again.Answers, 2)
	assert.Equal(t, "one two three four", again.Answers[0].AnswerText)
	require.NotNil(t, again.Answers[0].Speech)
	assert.Nil(t, again.Answers[1].Speech)
	assert.Contains(t, gen.requests[0].Prompt, "A: (not answered)")
}

type gatedGenerator struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGenerator) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return "## Summary\nKept going.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestReportSurvivesFirstCallerCancel(t *testing.T) {
	repo := newTestRepository(t)
	user := createUser(t, repo, "report-cancel@example.com")
	interview := createInterview(t, repo, user.ID, "[Technical] Q1?")
	_, _, err := repo.CreateAnswer(context.Background(), answerWithTiming(t, interview.Questions[0].ID, "an answer"))
	require.NoError(t, err)

	gen := &gatedGenerator{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewReportService(repo, gen)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, err := svc.FetchReport(ctx, user.ID, interview.ID)
		errs <- err
	}()

	<-gen.started
	cancel()
	go func() {
		_, err := svc.FetchReport(context.Background(), user.ID, interview.ID)
		errs <- err
	}()
	close(gen.release)

	for i := 0; i < 2; i++ {
		assert.NoError(t, <-errs)
	}

	stored, err := repo.GetAnalysis(context.Background(), interview.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "## Summary\nKept going.", stored.FeedbackText)
}

func TestReportServiceIncludesVideoScores(t *testing.T) {
	repo := newTestRepository(t)
	user := createUser(t, repo, "video-report@example.com")
	interview := createInterview(t, repo, user.ID, "Q1?")
	ctx := context.Background()

	_, _, err := repo.CreateAnswer(ctx, &models.Answer{QuestionID: interview.Questions[0].ID, AnswerText: "answer"})
	require.NoError(t, err)
	_, _, err = NewVideoService(repo).Submit(ctx, user.ID, interview.ID, nil)
	require.NoError(t, err)

	gen := &fakeGenerator{response: "Feedback"}
	report, err := NewReportService(repo, gen).FetchReport(ctx, user.ID, interview.ID)
	require.NoError(t, err)

	require.NotNil(t, report.Analysis.GazeStability)
	assert.Nil(t, report.Analysis.SpeechRate, "answers without timing have no speech metrics")
	assert.Contains(t, gen.requests[0].Prompt, "Gaze stability")
}

func TestReportServiceErrors(t *testing.T) {
	repo := newTestRepository(t)
	owner := createUser(t, repo, "owner-report@example.com")
	other := createUser(t, repo, "other-report@example.com")
	interview := createInterview(t, repo, owner.ID, "Q1?")
	ctx := context.Background()

	gen := &fakeGenerator{response: "Feedback"}
	svc := NewReportService(repo, gen)

	_, err := svc.FetchReport(ctx, other.ID, interview.ID)
	assert.ErrorIs(t, err, ErrInterviewNotFound)

	_, err = svc.FetchReport(ctx, owner.ID, interview.ID)
	assert.ErrorIs(t, err, ErrNoAnswers)

	_, _, err = repo.CreateAnswer(ctx, &models.Answer{QuestionID: interview.Questions[0].ID})
	require.NoError(t, err)
	_, err = NewReportService(repo, nil).FetchReport(ctx, owner.ID, interview.ID)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)

	assert.Equal(t, 0, gen.calls())
}
