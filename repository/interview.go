package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/krshsl/praxis/interviewer/models"
	"gorm.io/gorm"
)

// CreateInterview stores the interview and its ordered questions atomically.
func (r *GORMRepository) CreateInterview(ctx context.Context, interview *models.Interview, questions []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(interview).Error; err != nil {
			return fmt.Errorf("failed to create interview: %w", err)
		}
		rows := make([]models.Question, len(questions))
		for i, text := range questions {
			rows[i] = models.Question{InterviewID: interview.ID, Position: i, QuestionText: text}
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to create questions: %w", err)
			}
		}
		interview.Questions = rows
		return nil
	})
	if err != nil {
		slog.Error("Failed to create interview", "error", err, "user_id", interview.UserID, "resume_id", interview.ResumeID)
		return err
	}
	slog.Info("Interview created", "interview_id", interview.ID, "questions", len(questions))
	return nil
}

// GetInterviewForUser returns nil when the interview is missing or not owned by userID
func (r *GORMRepository) GetInterviewForUser(ctx context.Context, interviewID, userID string) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", interviewID, userID).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return &interview, nil
}

// GetInterviewDetail loads an owned interview with questions, answers and analyses
func (r *GORMRepository) GetInterviewDetail(ctx context.Context, interviewID, userID string) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Answer").
		Preload("VideoAnalysis").
		Preload("Analysis").
		Where("id = ? AND user_id = ?", interviewID, userID).
		First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview detail", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return &interview, nil
}

func (r *GORMRepository) GetInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	var interviews []models.Interview
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&interviews).Error; err != nil {
		slog.Error("Failed to get interviews", "error", err, "user_id", userID)
		return nil, err
	}
	return interviews, nil
}

func (r *GORMRepository) SetInterviewVideoURL(ctx context.Context, interviewID, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Interview{}).Where("id = ?", interviewID).Update("video_url", url)
	if res.Error != nil {
		slog.Error("Failed to set interview video", "error", res.Error, "interview_id", interviewID)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetQuestions returns the interview's questions in asking order
func (r *GORMRepository) GetQuestions(ctx context.Context, interviewID string) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).Where("interview_id = ?", interviewID).Order("position ASC").Find(&questions).Error; err != nil {
		slog.Error("Failed to get questions", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return questions, nil
}

// GetQuestionsWithAnswers returns questions in order with their answer, if any
func (r *GORMRepository) GetQuestionsWithAnswers(ctx context.Context, interviewID string) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Preload("Answer").
		Where("interview_id = ?", interviewID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		slog.Error("Failed to get answered questions", "error", err, "interview_id", interviewID)
		return nil, err
	}
	return questions, nil
}

// CreateAnswer inserts the answer unless one already exists for the question,
// in which case the existing answer is returned with created=false.
func (r *GORMRepository) CreateAnswer(ctx context.Context, answer *models.Answer) (*models.Answer, bool, error) {
	return createOrGet(ctx, r.db, answer, "question_id", func() (*models.Answer, error) {
		return r.GetAnswer(ctx, answer.QuestionID)
	})
}

func (r *GORMRepository) GetAnswer(ctx context.Context, questionID string) (*models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).Where("question_id = ?", questionID).First(&answer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &answer, nil
}

// GetGeneratedQuestions returns the cached questions for a resume in order
func (r *GORMRepository) GetGeneratedQuestions(ctx context.Context, resumeID string) ([]models.GeneratedQuestion, error) {
	var questions []models.GeneratedQuestion
	if err := r.db.WithContext(ctx).Where("resume_id = ?", resumeID).Order("position ASC").Find(&questions).Error; err != nil {
		slog.Error("Failed to get generated questions", "error", err, "resume_id", resumeID)
		return nil, err
	}
	return questions, nil
}

// SaveGeneratedQuestions caches a question set for a resume once. When another
// writer got there first, the stored set is returned with created=false.
func (r *GORMRepository) SaveGeneratedQuestions(ctx context.Context, resumeID string, texts []string) ([]models.GeneratedQuestion, bool, error) {
	rows := make([]models.GeneratedQuestion, len(texts))
	for i, text := range texts {
		rows[i] = models.GeneratedQuestion{ResumeID: resumeID, Position: i, QuestionText: text}
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GeneratedQuestion{}).Where("resume_id = ?", resumeID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 || len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		slog.Error("Failed to save generated questions", "error", err, "resume_id", resumeID)
		return nil, false, err
	}
	if created {
		slog.Info("Generated questions cached", "resume_id", resumeID, "count", len(rows))
		return rows, true, nil
	}

	existing, err := r.GetGeneratedQuestions(ctx, resumeID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
