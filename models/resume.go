package models

import (
	"time"

	"gorm.io/gorm"
)

// Resume is the plain text of a candidate's resume. Text extraction from
// documents happens before it reaches this service.
type Resume struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User               *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	GeneratedQuestions []GeneratedQuestion `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"generated_questions,omitempty"`
}

func (r *Resume) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// GeneratedQuestion caches LLM output per resume so repeated interviews
// against the same resume reuse the question set.
type GeneratedQuestion struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	ResumeID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_generated_question_position" json:"resume_id"`
	Position     int       `gorm:"not null;uniqueIndex:idx_generated_question_position" json:"position"`
	QuestionText string    `gorm:"type:text;not null" json:"question_text"`
	CreatedAt    time.Time `json:"created_at"`
}

func (q *GeneratedQuestion) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}
