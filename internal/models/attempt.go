package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptStatus is stored explicitly. Timestamps describe when a transition
// happened, never whether it happened.
type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "not_started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
)

// Attempt is one student's pass over one exam.
//
// Invariants:
//   - finished implies started, and started_at <= finished_at
//   - score fields are set exactly once, when the attempt finishes
type Attempt struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	ExamID       uint          `json:"exam_id" gorm:"not null;index:idx_attempts_exam_student"`
	StudentID    string        `json:"student_id" gorm:"not null;size:255;index:idx_attempts_exam_student"`
	AssignmentID *uint         `json:"assignment_id,omitempty" gorm:"index"`
	Status       AttemptStatus `json:"status" gorm:"not null;size:20;default:'not_started';index"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Score        *int `json:"score,omitempty"`
	TotalPoints  *int `json:"total_points,omitempty"`
	PercentScore *int `json:"percent_score,omitempty"`

	// SessionData holds client-reported context (user agent, screen size)
	// captured at start for later dispute handling.
	SessionData datatypes.JSON `json:"session_data,omitempty" gorm:"type:jsonb"`

	Exam        *Exam             `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Student     *User             `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Selections  []AnswerSelection `json:"selections,omitempty" gorm:"foreignKey:AttemptID"`
	ReviewMarks []ReviewMark      `json:"review_marks,omitempty" gorm:"foreignKey:AttemptID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsFinished() bool {
	return a.Status == AttemptFinished
}

func (a *Attempt) IsInProgress() bool {
	return a.Status == AttemptInProgress
}

// AnswerSelection records whether a given answer is picked within an attempt.
// Quiz attempts keep one row per (question, answer), created unpicked at start
// and toggled afterwards. Exam attempts keep at most one row per question.
type AnswerSelection struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_selections_triple"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_selections_triple"`
	AnswerID   uint `json:"answer_id" gorm:"not null;uniqueIndex:idx_selections_triple"`
	Selected   bool `json:"selected" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnswerSelection) TableName() string {
	return "answer_selections"
}

// ReviewMark flags a question the student wants to revisit before finishing.
type ReviewMark struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_review_marks_pair"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_review_marks_pair"`
	Marked     bool `json:"marked" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReviewMark) TableName() string {
	return "review_marks"
}
