package models

import (
	"time"

	"gorm.io/gorm"
)

type Subject struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subject) TableName() string {
	return "subjects"
}

type Course struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:255"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	SubjectID   uint    `json:"subject_id" gorm:"not null;index"`
	CreatedBy   string  `json:"created_by" gorm:"not null;size:255"`

	Subject       *Subject             `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Lessons       []Lesson             `json:"lessons,omitempty" gorm:"foreignKey:CourseID"`
	Prerequisites []CoursePrerequisite `json:"prerequisites,omitempty" gorm:"foreignKey:CourseID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Course) TableName() string {
	return "courses"
}

type Lesson struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"not null;size:255"`
	Position int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// CompletedLesson marks a lesson done for a student. A course counts as fully
// completed when the student's rows here cover every lesson of the course.
type CompletedLesson struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	LessonID    uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_completed_lesson_student"`
	StudentID   string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_completed_lesson_student"`
	CompletedAt time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (CompletedLesson) TableName() string {
	return "completed_lessons"
}

// CoursePrerequisite requires, per linked subject, at least one fully
// completed course under that subject before enrolling.
type CoursePrerequisite struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	CourseID  uint `json:"course_id" gorm:"not null;uniqueIndex:idx_course_prereq_subject"`
	SubjectID uint `json:"subject_id" gorm:"not null;uniqueIndex:idx_course_prereq_subject"`

	Subject *Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`

	CreatedAt time.Time `json:"created_at"`
}

func (CoursePrerequisite) TableName() string {
	return "course_prerequisites"
}

type Enrollment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CourseID   uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_course_student"`
	StudentID  string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_course_student"`
	EnrolledAt time.Time `json:"enrolled_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
