package models

import (
	"time"
)

// QuizAttempt is one finished (or abandoned) practice session. Rows are
// immutable once CompletedAt is set; this service only ever reads them.
type QuizAttempt struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"user_id" gorm:"not null;index"`
	QuizID uint `json:"quiz_id" gorm:"not null;index"`

	StartedAt       time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt     *time.Time `json:"completed_at" gorm:"index"`
	TimeSpentSecs   int        `json:"time_spent_secs" gorm:"default:0"`
	PercentageScore float64    `json:"percentage_score" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	User             User              `json:"-" gorm:"foreignKey:UserID"`
	Quiz             Quiz              `json:"-" gorm:"foreignKey:QuizID"`
	QuestionAttempts []QuestionAttempt `json:"question_attempts" gorm:"foreignKey:QuizAttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) IsCompleted() bool {
	return a.CompletedAt != nil
}

// QuestionAttempt records a single answered question within an attempt.
type QuestionAttempt struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	QuizAttemptID uint `json:"quiz_attempt_id" gorm:"not null;index"`
	QuestionID    uint `json:"question_id" gorm:"not null;index"`

	IsCorrect     bool `json:"is_correct" gorm:"default:false"`
	TimeSpentSecs int  `json:"time_spent_secs" gorm:"default:0"`

	// Comma-separated option keys the user selected.
	UserAnswer string `json:"user_answer" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (QuestionAttempt) TableName() string {
	return "question_attempts"
}
