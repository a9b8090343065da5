package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type prerequisiteService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    utils.Logger
}

func NewPrerequisiteService(repo repositories.Repository, publisher events.EventPublisher, logger utils.Logger) PrerequisiteService {
	return &prerequisiteService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Validate checks every prerequisite subject of the course. A subject is
// satisfied when the student has fully completed at least one course under
// it: completed-lesson count equals lesson count and the course has lessons.
func (s *prerequisiteService) Validate(ctx context.Context, studentID string, courseID uint) (*PrerequisiteCheckResult, error) {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	prereqs, err := s.repo.Course().GetPrerequisites(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prerequisites: %w", err)
	}

	result := &PrerequisiteCheckResult{
		CanEnroll:            true,
		MissingPrerequisites: []MissingPrerequisite{},
	}

	for _, prereq := range prereqs {
		satisfied, err := s.subjectSatisfied(ctx, studentID, prereq.SubjectID)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			result.CanEnroll = false
			missing := MissingPrerequisite{SubjectID: prereq.SubjectID}
			if prereq.Subject != nil {
				missing.SubjectName = prereq.Subject.Name
			}
			result.MissingPrerequisites = append(result.MissingPrerequisites, missing)
		}
	}

	return result, nil
}

// Enroll validates prerequisites and records the enrollment
func (s *prerequisiteService) Enroll(ctx context.Context, studentID string, courseID uint) error {
	enrolled, err := s.repo.Course().IsEnrolled(ctx, nil, courseID, studentID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	check, err := s.Validate(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	if !check.CanEnroll {
		return ErrPrerequisitesNotMet
	}

	enrollment := &models.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.repo.Course().CreateEnrollment(ctx, nil, enrollment); err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	if s.publisher != nil {
		event := events.NewEvent(events.EnrollmentCreated, events.EnrollmentCreatedData{
			CourseID:  courseID,
			StudentID: studentID,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "event_type", event.Type, "error", err)
		}
	}

	s.logger.Info("student enrolled", "course_id", courseID, "student_id", studentID)
	return nil
}

func (s *prerequisiteService) subjectSatisfied(ctx context.Context, studentID string, subjectID uint) (bool, error) {
	courses, err := s.repo.Course().GetCoursesBySubject(ctx, nil, subjectID)
	if err != nil {
		return false, fmt.Errorf("failed to get subject courses: %w", err)
	}

	for _, course := range courses {
		total, err := s.repo.Course().CountLessons(ctx, nil, course.ID)
		if err != nil {
			return false, fmt.Errorf("failed to count lessons: %w", err)
		}
		if total == 0 {
			continue
		}
		completed, err := s.repo.Course().CountCompletedLessons(ctx, nil, course.ID, studentID)
		if err != nil {
			return false, fmt.Errorf("failed to count completed lessons: %w", err)
		}
		if completed >= total {
			return true, nil
		}
	}
	return false, nil
}
