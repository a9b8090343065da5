package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Sub-repositories take an optional tx; nil falls back to the base connection.

type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ExamStatus) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)

	AddQuestion(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CountQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	// GetByIDWithExam preloads the exam with its questions and answers.
	GetByIDWithExam(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	// Complete persists the terminal transition in a single UPDATE.
	Complete(ctx context.Context, tx *gorm.DB, id uint, finishedAt time.Time, score, totalPoints, percentScore int) error
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetStats(ctx context.Context, tx *gorm.DB, examID uint) (*AttemptStats, error)
}

type SelectionRepository interface {
	BulkCreate(ctx context.Context, tx *gorm.DB, selections []models.AnswerSelection) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AnswerSelection, error)
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) ([]*models.AnswerSelection, error)
	// Upsert sets the selected flag for a (attempt, question, answer) triple,
	// creating the row if it does not exist yet.
	Upsert(ctx context.Context, tx *gorm.DB, selection *models.AnswerSelection) error
	// DeleteForQuestion clears previous picks of a question within an attempt.
	DeleteForQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) error

	SetReviewMark(ctx context.Context, tx *gorm.DB, mark *models.ReviewMark) error
	GetReviewMarks(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.ReviewMark, error)
}

type CourseRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetPrerequisites(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CoursePrerequisite, error)
	GetCoursesBySubject(ctx context.Context, tx *gorm.DB, subjectID uint) ([]*models.Course, error)
	CountLessons(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
	CountCompletedLessons(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (int64, error)

	CreateEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	IsEnrolled(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error)
	// GetRoster returns the student ids enrolled in a course.
	GetRoster(ctx context.Context, tx *gorm.DB, courseID uint) ([]string, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Assignment, error)

	UpsertSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error
	GetSubmission(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.AssignmentSubmission, error)
	GetSubmissionByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.AssignmentSubmission, error)
	UpdateSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}

// ===== FILTERS =====

type ExamFilters struct {
	Status    *models.ExamStatus
	Kind      *models.ExamKind
	CreatedBy *string
	DateFrom  *time.Time
	DateTo    *time.Time

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type AttemptFilters struct {
	Status    *models.AttemptStatus
	StudentID *string
	ExamID    *uint
	DateFrom  *time.Time
	DateTo    *time.Time

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type UserFilters struct {
	Query  string
	Role   *models.UserRole
	Limit  int
	Offset int
}

// ===== STATS =====

type AttemptStats struct {
	Total          int64    `json:"total"`
	NotStarted     int64    `json:"not_started"`
	InProgress     int64    `json:"in_progress"`
	Finished       int64    `json:"finished"`
	AveragePercent *float64 `json:"average_percent,omitempty"`
}
