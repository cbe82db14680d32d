// Package models holds the GORM models for the interview backend.
//
// Database schema overview:
//  1. users, refresh_tokens, permanent_tokens - cookie based authentication
//  2. resumes - resume text owned by a user
//  3. generated_questions - per-resume cache of LLM generated questions
//  4. interviews - one interview attempt against a resume
//  5. questions - ordered questions owned by an interview
//  6. answers - at most one transcribed answer per question
//  7. video_analyses - at most one telemetry summary per interview
//  8. analyses - at most one final feedback report per interview
package models

import "github.com/google/uuid"

// assignID fills an empty primary key so rows get an ID on every dialect.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&PermanentToken{},
		&Resume{},
		&GeneratedQuestion{},
		&Interview{},
		&Question{},
		&Answer{},
		&VideoAnalysis{},
		&Analysis{},
	}
}
