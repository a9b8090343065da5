package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamKind string

const (
	// KindQuiz allows selecting several answers per question.
	KindQuiz ExamKind = "quiz"
	// KindExam allows exactly one chosen answer per question.
	KindExam ExamKind = "exam"
)

type ExamStatus string

const (
	ExamDraft    ExamStatus = "draft"
	ExamActive   ExamStatus = "active"
	ExamArchived ExamStatus = "archived"
)

// Exam is a timed set of questions taken by students through attempts.
// DurationMinutes is advisory only; the server never force-closes an attempt.
type Exam struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	Title              string     `json:"title" gorm:"not null;size:255"`
	Description        *string    `json:"description,omitempty" gorm:"type:text"`
	Kind               ExamKind   `json:"kind" gorm:"not null;size:20;default:'quiz'"`
	Status             ExamStatus `json:"status" gorm:"not null;size:20;default:'draft';index"`
	DurationMinutes    int        `json:"duration_minutes" gorm:"not null;default:30"`
	ShowCorrectAnswers bool       `json:"show_correct_answers" gorm:"default:false"`
	CreatedBy          string     `json:"created_by" gorm:"not null;size:255;index"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	Creator   *User      `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Exam) TableName() string {
	return "exams"
}

// Question carries its own point weight. The answers flagged is_correct
// form the correct set used by scoring.
type Question struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	ExamID   uint    `json:"exam_id" gorm:"not null;index"`
	Text     string  `json:"text" gorm:"not null;type:text"`
	MediaURL *string `json:"media_url,omitempty" gorm:"size:500"`
	Points   int     `json:"points" gorm:"not null;default:1"`
	Position int     `json:"position" gorm:"not null;default:0"`

	// Extra holds optional presentation hints (media dimensions, captions).
	Extra datatypes.JSON `json:"extra,omitempty" gorm:"type:jsonb"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;type:text"`
	IsCorrect  bool   `json:"is_correct,omitempty" gorm:"not null;default:false"`
	Position   int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}

// CorrectAnswerIDs returns the ids of the answers flagged correct.
func (q *Question) CorrectAnswerIDs() []uint {
	var ids []uint
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
