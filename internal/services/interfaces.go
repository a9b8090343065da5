package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// ===== ATTEMPT DTOs =====

type StartAttemptRequest struct {
	// SessionData is optional client context captured at start
	SessionData map[string]interface{} `json:"session_data,omitempty"`
}

type RecordAnswerRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	AnswerID   uint `json:"answer_id" validate:"required"`
	// Selected only applies to quiz attempts; exam attempts always overwrite.
	// Defaults to true when omitted.
	Selected *bool `json:"selected,omitempty"`
}

type ReviewMarkRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Marked     bool `json:"marked"`
}

// QuestionView is a question rendered for the taking student. Correctness
// flags are stripped unless the attempt is finished and the exam allows it.
type QuestionView struct {
	ID           uint         `json:"id"`
	Text         string       `json:"text"`
	MediaURL     *string      `json:"media_url,omitempty"`
	Points       int          `json:"points"`
	Position     int          `json:"position"`
	Answers      []AnswerView `json:"answers"`
	SelectedIDs  []uint       `json:"selected_ids"`
	MarkedReview bool         `json:"marked_for_review"`
}

type AnswerView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type AttemptResponse struct {
	*models.Attempt
	ExamTitle       string          `json:"exam_title"`
	ExamKind        models.ExamKind `json:"exam_kind"`
	DurationMinutes int             `json:"duration_minutes"`
	Questions       []QuestionView  `json:"questions,omitempty"`
}

type FinishAttemptResponse struct {
	AttemptID    uint      `json:"attempt_id"`
	Score        int       `json:"score"`
	TotalPoints  int       `json:"total_points"`
	PercentScore int       `json:"percent_score"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ===== EXAM DTOs =====

type ExamCreateRequest struct {
	Title              string                  `json:"title" validate:"required,exam_title"`
	Description        *string                 `json:"description" validate:"omitempty,max=2000"`
	Kind               models.ExamKind         `json:"kind" validate:"required,oneof=quiz exam"`
	DurationMinutes    int                     `json:"duration_minutes" validate:"required,exam_duration"`
	ShowCorrectAnswers bool                    `json:"show_correct_answers"`
	Questions          []QuestionCreateRequest `json:"questions" validate:"omitempty,dive"`
}

type QuestionCreateRequest struct {
	Text     string                `json:"text" validate:"required,min=1,max=2000"`
	MediaURL *string               `json:"media_url" validate:"omitempty,url,max=500"`
	Points   int                   `json:"points" validate:"required,points_range"`
	Position int                   `json:"position" validate:"min=0"`
	Answers  []AnswerCreateRequest `json:"answers" validate:"required,min=2,dive"`
}

type AnswerCreateRequest struct {
	Text      string `json:"text" validate:"required,min=1,max=1000"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position" validate:"min=0"`
}

type ExamListResponse struct {
	Exams []*models.Exam `json:"exams"`
	Total int64          `json:"total"`
}

// ===== ENROLLMENT DTOs =====

type MissingPrerequisite struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

type PrerequisiteCheckResult struct {
	CanEnroll            bool                  `json:"can_enroll"`
	MissingPrerequisites []MissingPrerequisite `json:"missing_prerequisites"`
}

// ===== ASSIGNMENT DTOs =====

type AssignmentCreateRequest struct {
	CourseID uint                  `json:"course_id" validate:"required"`
	Title    string                `json:"title" validate:"required,min=1,max=255"`
	Type     models.AssignmentType `json:"type" validate:"required,oneof=exam file"`
	ExamID   *uint                 `json:"exam_id" validate:"required_if=Type exam"`
	DueDate  *time.Time            `json:"due_date"`
}

type GradeSubmissionRequest struct {
	Grade    int     `json:"grade" validate:"min=0,max=100"`
	Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, attemptID uint, studentID string, req *StartAttemptRequest) (*AttemptResponse, error)
	StartByExam(ctx context.Context, examID uint, studentID string, req *StartAttemptRequest) (*AttemptResponse, error)
	RecordAnswer(ctx context.Context, attemptID uint, studentID string, req *RecordAnswerRequest) error
	MarkForReview(ctx context.Context, attemptID uint, studentID string, req *ReviewMarkRequest) error
	Finish(ctx context.Context, attemptID uint, studentID string) (*FinishAttemptResponse, error)
	GetWithDetails(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error)
	List(ctx context.Context, filters repositories.AttemptFilters, userID string, role models.UserRole) ([]*models.Attempt, int64, error)
	GetStats(ctx context.Context, examID uint, userID string) (*repositories.AttemptStats, error)
}

type ExamService interface {
	Create(ctx context.Context, req *ExamCreateRequest, creatorID string) (*models.Exam, error)
	AddQuestion(ctx context.Context, examID uint, req *QuestionCreateRequest, userID string) (*models.Question, error)
	GetByID(ctx context.Context, examID uint, userID string, role models.UserRole) (*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters, userID string, role models.UserRole) (*ExamListResponse, error)
	Publish(ctx context.Context, examID uint, userID string) error
	Archive(ctx context.Context, examID uint, userID string) error
}

type PrerequisiteService interface {
	Validate(ctx context.Context, studentID string, courseID uint) (*PrerequisiteCheckResult, error)
	Enroll(ctx context.Context, studentID string, courseID uint) error
}

type AssignmentService interface {
	Issue(ctx context.Context, req *AssignmentCreateRequest, creatorID string) (*models.Assignment, error)
	ListSubmissions(ctx context.Context, assignmentID uint, userID string) ([]*models.AssignmentSubmission, error)
	GradeSubmission(ctx context.Context, submissionID uint, req *GradeSubmissionRequest, graderID string) (*models.AssignmentSubmission, error)
}

type ExportService interface {
	// ExportExamResults renders all finished attempts of an exam as an xlsx file.
	ExportExamResults(ctx context.Context, examID uint, userID string) ([]byte, error)
}

// ServiceManager wires all services and owns their lifecycle
type ServiceManager interface {
	Attempt() AttemptService
	Exam() ExamService
	Prerequisite() PrerequisiteService
	Assignment() AssignmentService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
