package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	validator *validator.Validator
	publisher events.EventPublisher
	logger    utils.Logger
}

func NewAssignmentService(repo repositories.Repository, v *validator.Validator, publisher events.EventPublisher, logger utils.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		validator: v,
		publisher: publisher,
		logger:    logger,
	}
}

// Issue creates the assignment and pre-provisions per-student state for the
// whole course roster: an empty submission row each, plus a not_started
// attempt when the assignment wraps an exam.
func (s *assignmentService) Issue(ctx context.Context, req *AssignmentCreateRequest, creatorID string) (*models.Assignment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetByID(ctx, nil, req.CourseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if req.Type == models.AssignmentExam {
		exam, err := s.repo.Exam().GetByID(ctx, nil, *req.ExamID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrExamNotFound
			}
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}
		if exam.Status != models.ExamActive {
			return nil, ErrExamNotActive
		}
	}

	roster, err := s.repo.Course().GetRoster(ctx, nil, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}

	assignment := &models.Assignment{
		CourseID:  req.CourseID,
		Title:     req.Title,
		Type:      req.Type,
		ExamID:    req.ExamID,
		DueDate:   req.DueDate,
		CreatedBy: creatorID,
	}

	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Assignment().Create(ctx, nil, assignment); err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		for _, studentID := range roster {
			submission := &models.AssignmentSubmission{
				AssignmentID: assignment.ID,
				StudentID:    studentID,
			}
			if err := r.Assignment().UpsertSubmission(ctx, nil, submission); err != nil {
				return fmt.Errorf("failed to provision submission for %s: %w", studentID, err)
			}
			if req.Type == models.AssignmentExam {
				attempt := &models.Attempt{
					ExamID:       *req.ExamID,
					StudentID:    studentID,
					AssignmentID: &assignment.ID,
					Status:       models.AttemptNotStarted,
				}
				if err := r.Attempt().Create(ctx, nil, attempt); err != nil {
					return fmt.Errorf("failed to provision attempt for %s: %w", studentID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := events.NewEvent(events.AssignmentIssued, events.AssignmentIssuedData{
			AssignmentID: assignment.ID,
			CourseID:     assignment.CourseID,
			ExamID:       assignment.ExamID,
			StudentIDs:   roster,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "event_type", event.Type, "error", err)
		}
	}

	s.logger.Info("assignment issued",
		"assignment_id", assignment.ID,
		"course_id", assignment.CourseID,
		"students", len(roster))
	return assignment, nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, assignmentID uint, userID string) ([]*models.AssignmentSubmission, error) {
	if _, err := s.getManagedAssignment(ctx, assignmentID, userID, "list submissions"); err != nil {
		return nil, err
	}
	return s.repo.Assignment().ListSubmissions(ctx, nil, assignmentID)
}

func (s *assignmentService) GradeSubmission(ctx context.Context, submissionID uint, req *GradeSubmissionRequest, graderID string) (*models.AssignmentSubmission, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	submission, err := s.repo.Assignment().GetSubmissionByID(ctx, nil, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if _, err := s.getManagedAssignment(ctx, submission.AssignmentID, graderID, "grade"); err != nil {
		return nil, err
	}
	if !submission.IsSubmitted() {
		return nil, NewBusinessRuleError("submission_not_submitted", "cannot grade a submission that was never handed in", map[string]interface{}{
			"submission_id": submissionID,
		})
	}

	now := time.Now().UTC()
	submission.Grade = &req.Grade
	submission.Feedback = req.Feedback
	submission.GradedBy = &graderID
	submission.GradedAt = &now

	if err := s.repo.Assignment().UpdateSubmission(ctx, nil, submission); err != nil {
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	s.logger.Info("submission graded",
		"submission_id", submissionID,
		"grade", req.Grade,
		"graded_by", graderID)
	return submission, nil
}

func (s *assignmentService) getManagedAssignment(ctx context.Context, assignmentID uint, userID, action string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.CreatedBy != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil || !isAdmin {
			return nil, NewPermissionError(userID, assignmentID, "assignment", action, "assignment belongs to another teacher")
		}
	}
	return assignment, nil
}
