package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestRepository(t *testing.T) *repository.GORMRepository {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func newTestAuth(repo *repository.GORMRepository) *AuthService {
	return NewAuthService(repo, JWTConfig{Secret: testSecret, AccessExpiry: time.Hour})
}

func createUser(t *testing.T, repo *repository.GORMRepository, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FullName: "Test", Role: "user"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func createResume(t *testing.T, repo *repository.GORMRepository, userID string) *models.Resume {
	t.Helper()
	resume := &models.Resume{UserID: userID, Title: "Backend", Content: "Go, Postgres, queues"}
	require.NoError(t, repo.CreateResume(context.Background(), resume))
	return resume
}

func createInterview(t *testing.T, repo *repository.GORMRepository, userID string, questions ...string) *models.Interview {
	t.Helper()
	resume := createResume(t, repo, userID)
	interview := &models.Interview{UserID: userID, ResumeID: resume.ID}
	require.NoError(t, repo.CreateInterview(context.Background(), interview, questions))
	return interview
}

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	requests []TextRequest
}

func (f *fakeGenerator) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeSpeech struct {
	mu     sync.Mutex
	voices []string
	calls  []string
	err    error
}

func (f *fakeSpeech) Voices(gender string) []string {
	return f.voices
}

func (f *fakeSpeech) TextToSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, voice)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(voice + ":" + text), nil
}

func (f *fakeSpeech) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
