package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interview is one interview attempt against a resume
type Interview struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	ResumeID  string    `gorm:"type:uuid;not null;index" json:"resume_id"`
	VideoURL  *string   `gorm:"size:1024" json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Resume        *Resume        `gorm:"foreignKey:ResumeID" json:"resume,omitempty"`
	Questions     []Question     `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	VideoAnalysis *VideoAnalysis `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"video_analysis,omitempty"`
	Analysis      *Analysis      `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"analysis,omitempty"`
}

func (i *Interview) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// Question keeps its ordinal in Position so replay order never depends on timestamps
type Question struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_question_position" json:"interview_id"`
	Position     int       `gorm:"not null;uniqueIndex:idx_question_position" json:"position"`
	QuestionText string    `gorm:"type:text;not null" json:"question_text"`
	CreatedAt    time.Time `json:"created_at"`

	// Relationships
	Answer *Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answer,omitempty"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// Answer is written once by the session orchestrator. QuestionID is unique so
// a reconnecting client can never attach two answers to one question.
type Answer struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID    string         `gorm:"type:uuid;not null;uniqueIndex" json:"question_id"`
	AnswerText    string         `gorm:"type:text;not null;default:''" json:"answer_text"`
	AudioPath     *string        `gorm:"size:1024" json:"audio_path,omitempty"`
	Transcription datatypes.JSON `json:"transcription,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
