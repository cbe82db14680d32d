package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/krshsl/praxis/interviewer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func seedInterview(t *testing.T, repo *GORMRepository, userID string, questions ...string) *models.Interview {
	t.Helper()
	ctx := context.Background()

	resume := &models.Resume{UserID: userID, Title: "Backend", Content: "Go, Postgres"}
	require.NoError(t, repo.CreateResume(ctx, resume))

	interview := &models.Interview{UserID: userID, ResumeID: resume.ID}
	require.NoError(t, repo.CreateInterview(ctx, interview, questions))
	return interview
}

func TestCreateInterviewPreservesQuestionOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	interview := seedInterview(t, repo, "u1", "first", "second", "third")
	require.NotEmpty(t, interview.ID)

	questions, err := repo.GetQuestions(ctx, interview.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, questions[i].QuestionText)
		assert.Equal(t, i, questions[i].Position)
	}
}

func TestGetInterviewForUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	interview := seedInterview(t, repo, "owner", "q")

	got, err := repo.GetInterviewForUser(ctx, interview.ID, "owner")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = repo.GetInterviewForUser(ctx, interview.ID, "intruder")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetInterviewForUser(ctx, "00000000-0000-0000-0000-000000000000", "owner")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateAnswerIsUniquePerQuestion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	interview := seedInterview(t, repo, "u1", "q")

	questions, err := repo.GetQuestions(ctx, interview.ID)
	require.NoError(t, err)
	qid := questions[0].ID

	first, created, err := repo.CreateAnswer(ctx, &models.Answer{
		QuestionID:    qid,
		AnswerText:    "original",
		Transcription: datatypes.JSON(`{"text":"original","segments":[{"start":0,"end":1}]}`),
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateAnswer(ctx, &models.Answer{QuestionID: qid, AnswerText: "retry"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "original", second.AnswerText)

	withAnswers, err := repo.GetQuestionsWithAnswers(ctx, interview.ID)
	require.NoError(t, err)
	require.NotNil(t, withAnswers[0].Answer)
	assert.JSONEq(t, `{"text":"original","segments":[{"start":0,"end":1}]}`, string(withAnswers[0].Answer.Transcription))
}

func TestCreateOrGetAnalysisConcurrent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	interview := seedInterview(t, repo, "u1", "q")

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, ok, err := repo.CreateOrGetAnalysis(ctx, &models.Analysis{InterviewID: interview.ID, FeedbackText: "report"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[a.ID] = true
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
}

func TestCreateOrGetVideoAnalysis(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	interview := seedInterview(t, repo, "u1", "q")

	first, created, err := repo.CreateOrGetVideoAnalysis(ctx, &models.VideoAnalysis{InterviewID: interview.ID, GazeStability: 0.1})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateOrGetVideoAnalysis(ctx, &models.VideoAnalysis{InterviewID: interview.ID, GazeStability: 0.9})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 0.1, second.GazeStability, 1e-9)

	var count int64
	require.NoError(t, repo.db.Model(&models.VideoAnalysis{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSaveGeneratedQuestionsOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, created, err := repo.SaveGeneratedQuestions(ctx, "r1", []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first, 2)

	second, created, err := repo.SaveGeneratedQuestions(ctx, "r1", []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, second, 2)
	assert.Equal(t, "a", second[0].QuestionText)
	assert.Equal(t, "b", second[1].QuestionText)
}

func TestSetInterviewVideoURL(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	interview := seedInterview(t, repo, "u1", "q")

	require.NoError(t, repo.SetInterviewVideoURL(ctx, interview.ID, "s3://bucket/video.webm"))
	got, err := repo.GetInterviewDetail(ctx, interview.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.VideoURL)
	assert.Equal(t, "s3://bucket/video.webm", *got.VideoURL)
	assert.Len(t, got.Questions, 1)

	assert.ErrorIs(t, repo.SetInterviewVideoURL(ctx, "missing", "x"), ErrNotFound)
}
