package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
	"golang.org/x/crypto/bcrypt"
)

const demoResume = `Jordan Lee - Backend Engineer

Experience
- Built a Go order routing service handling 3k requests per second on Postgres.
- Migrated a monolith's notification system to a queue based worker pool.
- Led an on-call rotation of five engineers and wrote the incident runbooks.

Projects
- Open source rate limiter library with token bucket and sliding window modes.

Skills
Go, PostgreSQL, Redis, Docker, Kubernetes, gRPC`

// DatabaseSeeder creates demo accounts for local development.
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase is idempotent: existing users and their resumes are left alone.
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{Email: "test@example.com", Password: string(hashedPassword), FullName: "Test User", Role: "user"},
		{Email: "demo@example.com", Password: string(hashedPassword), FullName: "Demo User", Role: "user"},
	}

	for _, user := range users {
		seeded, err := s.seedUser(ctx, user)
		if err != nil {
			slog.Error("Failed to seed user", "email", user.Email, "error", err)
			continue
		}
		if err := s.seedResume(ctx, seeded); err != nil {
			slog.Error("Failed to seed resume", "email", user.Email, "error", err)
		}
	}

	slog.Info("Database seeding completed")
	return nil
}

func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) (*models.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user %s: %w", user.Email, err)
	}
	if existing != nil {
		slog.Info("User already exists, skipping", "email", user.Email)
		return existing, nil
	}

	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	slog.Info("Created user", "email", user.Email)
	return &user, nil
}

func (s *DatabaseSeeder) seedResume(ctx context.Context, user *models.User) error {
	resumes, err := s.repo.GetResumes(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(resumes) > 0 {
		return nil
	}

	resume := &models.Resume{UserID: user.ID, Title: "Sample backend resume", Content: demoResume}
	if err := s.repo.CreateResume(ctx, resume); err != nil {
		return err
	}
	slog.Info("Created resume", "email", user.Email, "resume_id", resume.ID)
	return nil
}
