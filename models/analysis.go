package models

import (
	"time"

	"gorm.io/gorm"
)

// VideoAnalysis stores stability scores computed from client landmark
// telemetry. Lower is steadier.
type VideoAnalysis struct {
	ID                  string    `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID         string    `gorm:"type:uuid;not null;uniqueIndex" json:"interview_id"`
	GazeStability       float64   `gorm:"not null" json:"gaze_stability"`
	ExpressionStability float64   `gorm:"not null" json:"expression_stability"`
	PostureStability    float64   `gorm:"not null" json:"posture_stability"`
	CreatedAt           time.Time `json:"created_at"`
}

func (v *VideoAnalysis) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// Analysis is the final feedback report, created exactly once per interview
type Analysis struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID  string `gorm:"type:uuid;not null;uniqueIndex" json:"interview_id"`
	FeedbackText string `gorm:"type:text;not null" json:"feedback_text"`

	// Audio analysis results
	SpeechRate   *float64 `json:"speech_rate,omitempty"`
	SilenceRatio *float64 `json:"silence_ratio,omitempty"`

	// Video analysis results
	GazeStability       *float64 `json:"gaze_stability,omitempty"`
	ExpressionStability *float64 `json:"expression_stability,omitempty"`
	PostureStability    *float64 `json:"posture_stability,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
