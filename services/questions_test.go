package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		limit    int
		expected []string
	}{
		{
			name:     "JSON object",
			raw:      `{"questions": ["[Technical] How does the queue retry work?", "[Behavioral] Tell me about a conflict."]}`,
			expected: []string{"[Technical] How does the queue retry work?", "[Behavioral] Tell me about a conflict."},
		},
		{
			name:     "Fenced JSON array with ordinals",
			raw:      "```json\n[\"1. What is a goroutine?\", \"2. Why use channels?\"]\n```",
			expected: []string{"What is a goroutine?", "Why use channels?"},
		},
		{
			name:     "Objects with tags",
			raw:      `[{"tag": "Project", "question": "Walk me through the rate limiter."}, {"text": "How did you test it?"}]`,
			expected: []string{"[Project] Walk me through the rate limiter.", "How did you test it?"},
		},
		{
			name:     "Numbered lines with heading",
			raw:      "Here are your questions:\n1) First question?\n2) Second question?\n\nQ3: Third question?",
			expected: []string{"First question?", "Second question?", "Third question?"},
		},
		{
			name:     "Bullets and quotes",
			raw:      "- \"Quoted question?\"\n* Starred question?",
			expected: []string{"Quoted question?", "Starred question?"},
		},
		{
			name:     "Limit",
			raw:      "1. One?\n2. Two?\n3. Three?",
			limit:    2,
			expected: []string{"One?", "Two?"},
		},
		{
			name:     "Empty response",
			raw:      "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseQuestions(tt.raw, tt.limit))
		})
	}
}

func TestQuestionServiceReusesCachedQuestions(t *testing.T) {
	repo := newTestRepository(t)
	user := createUser(t, repo, "cache@example.com")
	resume := createResume(t, repo, user.ID)

	gen := &fakeGenerator{response: `{"questions": ["[Technical] A?", "[Project] B?"]}`}
	svc := NewQuestionService(repo, gen, 5)

	first, err := svc.CreateInterview(context.Background(), user.ID, resume.ID)
	require.NoError(t, err)
	second, err := svc.CreateInterview(context.Background(), user.ID, resume.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, gen.calls(), "the second interview reuses the cached set")
	require.Len(t, gen.requests, 1)
	assert.True(t, gen.requests[0].JSON)

	for _, interview := range []string{first.ID, second.ID} {
		questions, err := repo.GetQuestions(context.Background(), interview)
		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.Equal(t, "[Technical] A?", questions[0].QuestionText)
		assert.Equal(t, "[Project] B?", questions[1].QuestionText)
	}
}

func TestQuestionServiceErrors(t *testing.T) {
	repo := newTestRepository(t)
	owner := createUser(t, repo, "owner@example.com")
	other := createUser(t, repo, "other@example.com")
	resume := createResume(t, repo, owner.ID)

	tests := []struct {
		name     string
		llm      TextGenerator
		userID   string
		expected error
	}{
		{"Resume of another user", &fakeGenerator{response: `["A?"]`}, other.ID, ErrResumeNotFound},
		{"No generator configured", nil, owner.ID, ErrGenerationUnavailable},
		{"Unusable response", &fakeGenerator{response: "Here you go:"}, owner.ID, ErrNoQuestionsGenerated},
		{"Generator failure", &fakeGenerator{err: errors.New("quota")}, owner.ID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuestionService(repo, tt.llm, 5).CreateInterview(context.Background(), tt.userID, resume.ID)
			require.Error(t, err)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}

	interviews, err := repo.GetInterviews(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, interviews, "failed generations create no interview")
}
