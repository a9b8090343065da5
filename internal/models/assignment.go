package models

import (
	"time"

	"gorm.io/gorm"
)

type AssignmentType string

const (
	// AssignmentExam is fulfilled by finishing the referenced exam.
	AssignmentExam AssignmentType = "exam"
	// AssignmentFile is fulfilled by uploading a file.
	AssignmentFile AssignmentType = "file"
)

type Assignment struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CourseID  uint           `json:"course_id" gorm:"not null;index"`
	Title     string         `json:"title" gorm:"not null;size:255"`
	Type      AssignmentType `json:"type" gorm:"not null;size:20"`
	ExamID    *uint          `json:"exam_id,omitempty" gorm:"index"`
	DueDate   *time.Time     `json:"due_date,omitempty"`
	CreatedBy string         `json:"created_by" gorm:"not null;size:255"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Exam   *Exam   `json:"exam,omitempty" gorm:"foreignKey:ExamID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentSubmission is keyed by (assignment, student). Rows are pre-created
// when an assignment is issued and filled in as the student submits; finishing
// a linked exam attempt upserts the attempt reference here.
type AssignmentSubmission struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AssignmentID uint   `json:"assignment_id" gorm:"not null;uniqueIndex:idx_submission_assignment_student"`
	StudentID    string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_submission_assignment_student"`

	AttemptID   *uint      `json:"attempt_id,omitempty"`
	FileURL     *string    `json:"file_url,omitempty" gorm:"size:500"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	Grade    *int       `json:"grade,omitempty"`
	GradedBy *string    `json:"graded_by,omitempty" gorm:"size:255"`
	GradedAt *time.Time `json:"graded_at,omitempty"`
	Feedback *string    `json:"feedback,omitempty" gorm:"type:text"`

	Assignment *Assignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Student    *User       `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Attempt    *Attempt    `json:"attempt,omitempty" gorm:"foreignKey:AttemptID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}

func (s *AssignmentSubmission) IsSubmitted() bool {
	return s.SubmittedAt != nil
}
