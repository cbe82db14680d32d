package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/interviewer/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// createOrGet inserts row unless a row with the same value in the unique
// column already exists. The conflict branch re-fetches the stored row and
// reports created=false.
func createOrGet[T any](ctx context.Context, db *gorm.DB, row *T, column string, fetch func() (*T, error)) (*T, bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: column}}, DoNothing: true}).
		Create(row)

	switch {
	case res.Error == nil && res.RowsAffected > 0:
		return row, true, nil
	case res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey):
		return nil, false, res.Error
	}

	existing, err := fetch()
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch existing row: %w", err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("conflict on %s but no existing row", column)
	}
	return existing, false, nil
}

// CreateOrGetAnalysis stores the report unless the interview already has one.
func (r *GORMRepository) CreateOrGetAnalysis(ctx context.Context, analysis *models.Analysis) (*models.Analysis, bool, error) {
	stored, created, err := createOrGet(ctx, r.db, analysis, "interview_id", func() (*models.Analysis, error) {
		return r.GetAnalysis(ctx, analysis.InterviewID)
	})
	if err != nil {
		slog.Error("Failed to store analysis", "error", err, "interview_id", analysis.InterviewID)
		return nil, false, err
	}
	if !created {
		slog.Info("Analysis already existed, using stored report", "interview_id", analysis.InterviewID)
	}
	return stored, created, nil
}

func (r *GORMRepository) GetAnalysis(ctx context.Context, interviewID string) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := r.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get analysis", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return &analysis, nil
}

// CreateOrGetVideoAnalysis stores the scores unless the interview already has them.
func (r *GORMRepository) CreateOrGetVideoAnalysis(ctx context.Context, va *models.VideoAnalysis) (*models.VideoAnalysis, bool, error) {
	stored, created, err := createOrGet(ctx, r.db, va, "interview_id", func() (*models.VideoAnalysis, error) {
		return r.GetVideoAnalysis(ctx, va.InterviewID)
	})
	if err != nil {
		slog.Error("Failed to store video analysis", "error", err, "interview_id", va.InterviewID)
		return nil, false, err
	}
	return stored, created, nil
}

func (r *GORMRepository) GetVideoAnalysis(ctx context.Context, interviewID string) (*models.VideoAnalysis, error) {
	var va models.VideoAnalysis
	if err := r.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&va).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get video analysis", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return &va, nil
}
