package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/interviewer/metrics"
	"github.com/krshsl/praxis/interviewer/models"
	"github.com/krshsl/praxis/interviewer/repository"
)

type VideoService struct {
	repo *repository.GORMRepository
}

func NewVideoService(repo *repository.GORMRepository) *VideoService {
	return &VideoService{repo: repo}
}

// Submit scores the landmark frames of an owned interview and stores them
// once. created is false when scores already existed; the stored row is
// returned unchanged in that case.
func (s *VideoService) Submit(ctx context.Context, userID, interviewID string, frames []metrics.Frame) (*models.VideoAnalysis, bool, error) {
	interview, err := s.repo.GetInterviewForUser(ctx, interviewID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load interview: %w", err)
	}
	if interview == nil {
		return nil, false, ErrInterviewNotFound
	}

	scores := metrics.Video(frames)
	stored, created, err := s.repo.CreateOrGetVideoAnalysis(ctx, &models.VideoAnalysis{
		InterviewID:         interview.ID,
		GazeStability:       scores.GazeStability,
		ExpressionStability: scores.ExpressionStability,
		PostureStability:    scores.PostureStability,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to store video analysis: %w", err)
	}

	if created {
		slog.Info("Video analysis stored", "interview_id", interview.ID, "frames", len(frames))
	} else {
		slog.Info("Video analysis already exists", "interview_id", interview.ID)
	}
	return stored, created, nil
}
