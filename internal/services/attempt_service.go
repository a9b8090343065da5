package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	validator *validator.Validator
	publisher events.EventPublisher
	logger    utils.Logger
}

func NewAttemptService(repo repositories.Repository, v *validator.Validator, publisher events.EventPublisher, logger utils.Logger) AttemptService {
	return &attemptService{
		repo:      repo,
		validator: v,
		publisher: publisher,
		logger:    logger,
	}
}

// Start moves a pre-created attempt from not_started to in_progress. Quiz
// attempts get one unpicked selection row per (question, answer) so answering
// is a pure toggle afterwards.
func (s *attemptService) Start(ctx context.Context, attemptID uint, studentID string, req *StartAttemptRequest) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithExam(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "start", "attempt belongs to another student")
	}

	if err := s.startLocked(ctx, attempt, req); err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, attempt, studentID, models.RoleStudent)
}

// StartByExam starts an attempt for the exam, creating it first when the
// student has none. An in-progress attempt is returned as-is so a student
// can re-enter after a reload; a finished attempt blocks re-taking.
func (s *attemptService) StartByExam(ctx context.Context, examID uint, studentID string, req *StartAttemptRequest) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByExamAndStudent(ctx, nil, examID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt == nil || repositories.IsNotFoundError(err) {
		attempt = &models.Attempt{
			ExamID:    examID,
			StudentID: studentID,
			Status:    models.AttemptNotStarted,
		}
		if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
	}

	full, err := s.repo.Attempt().GetByIDWithExam(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	// Resume: the start endpoint is idempotent while the attempt is open.
	if full.Status == models.AttemptInProgress {
		return s.buildResponse(ctx, full, studentID, models.RoleStudent)
	}

	if err := s.startLocked(ctx, full, req); err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, full, studentID, models.RoleStudent)
}

// startLocked validates the transition and persists it together with the
// quiz selection scaffold.
func (s *attemptService) startLocked(ctx context.Context, attempt *models.Attempt, req *StartAttemptRequest) error {
	switch attempt.Status {
	case models.AttemptInProgress:
		return ErrAttemptAlreadyStarted
	case models.AttemptFinished:
		return ErrAttemptAlreadyFinished
	}

	if attempt.Exam == nil {
		return ErrExamNotFound
	}
	if attempt.Exam.Status != models.ExamActive {
		return ErrExamNotActive
	}
	if len(attempt.Exam.Questions) == 0 {
		return ErrExamHasNoQuestions
	}

	now := time.Now().UTC()
	attempt.Status = models.AttemptInProgress
	attempt.StartedAt = &now
	if req != nil && req.SessionData != nil {
		raw, err := json.Marshal(req.SessionData)
		if err != nil {
			return fmt.Errorf("failed to encode session data: %w", err)
		}
		attempt.SessionData = raw
	}

	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		if attempt.Exam.Kind == models.KindQuiz {
			scaffold := quizSelectionScaffold(attempt)
			if len(scaffold) > 0 {
				if err := r.Selection().BulkCreate(ctx, nil, scaffold); err != nil {
					return fmt.Errorf("failed to create selections: %w", err)
				}
			}
		}
		return nil
	})
}

// RecordAnswer stores one answer action. Quiz attempts toggle the named
// selection row; exam attempts replace the question's single choice.
func (s *attemptService) RecordAnswer(ctx context.Context, attemptID uint, studentID string, req *RecordAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.repo.Attempt().GetByIDWithExam(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return NewPermissionError(studentID, attemptID, "attempt", "answer", "attempt belongs to another student")
	}
	if err := requireInProgress(attempt); err != nil {
		return err
	}

	question := findQuestion(attempt.Exam, req.QuestionID)
	if question == nil {
		return ErrQuestionNotInExam
	}
	if findAnswer(question, req.AnswerID) == nil {
		return ErrAnswerNotInQuestion
	}

	selected := true
	if req.Selected != nil {
		selected = *req.Selected
	}

	if attempt.Exam.Kind == models.KindQuiz {
		return s.repo.Selection().Upsert(ctx, nil, &models.AnswerSelection{
			AttemptID:  attemptID,
			QuestionID: req.QuestionID,
			AnswerID:   req.AnswerID,
			Selected:   selected,
		})
	}

	// Single choice: drop whatever was picked before, then record the new one.
	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if err := r.Selection().DeleteForQuestion(ctx, nil, attemptID, req.QuestionID); err != nil {
			return fmt.Errorf("failed to clear previous choice: %w", err)
		}
		return r.Selection().Upsert(ctx, nil, &models.AnswerSelection{
			AttemptID:  attemptID,
			QuestionID: req.QuestionID,
			AnswerID:   req.AnswerID,
			Selected:   true,
		})
	})
}

func (s *attemptService) MarkForReview(ctx context.Context, attemptID uint, studentID string, req *ReviewMarkRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, err := s.repo.Attempt().GetByIDWithExam(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return NewPermissionError(studentID, attemptID, "attempt", "review", "attempt belongs to another student")
	}
	if err := requireInProgress(attempt); err != nil {
		return err
	}
	if findQuestion(attempt.Exam, req.QuestionID) == nil {
		return ErrQuestionNotInExam
	}

	return s.repo.Selection().SetReviewMark(ctx, nil, &models.ReviewMark{
		AttemptID:  attemptID,
		QuestionID: req.QuestionID,
		Marked:     req.Marked,
	})
}

// Finish scores and closes the attempt inside one serializable transaction,
// so two racing finishes cannot both succeed. Submission linking and event
// publishing run after commit and never fail the request.
func (s *attemptService) Finish(ctx context.Context, attemptID uint, studentID string) (*FinishAttemptResponse, error) {
	var result *ScoreResult
	var finishedAt time.Time
	var attempt *models.Attempt

	err := s.repo.WithSerializableTransaction(ctx, func(r repositories.Repository) error {
		var err error
		attempt, err = r.Attempt().GetByIDWithExam(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "finish", "attempt belongs to another student")
		}
		if err := requireInProgress(attempt); err != nil {
			return err
		}

		selections, err := r.Selection().GetByAttempt(ctx, nil, attemptID)
		if err != nil {
			return fmt.Errorf("failed to load selections: %w", err)
		}

		result = EvaluateAttempt(attempt.Exam, selections)
		finishedAt = time.Now().UTC()

		if err := r.Attempt().Complete(ctx, nil, attemptID, finishedAt, result.Score, result.TotalPoints, result.PercentScore); err != nil {
			if repositories.IsNotFoundError(err) {
				// Lost the race: someone finished it between our read and write.
				return ErrAttemptAlreadyFinished
			}
			return fmt.Errorf("failed to complete attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.linkSubmission(ctx, attempt, finishedAt)
	s.publishEvent(ctx, events.NewEvent(events.AttemptFinished, events.AttemptFinishedData{
		AttemptID:    attempt.ID,
		ExamID:       attempt.ExamID,
		StudentID:    attempt.StudentID,
		Score:        result.Score,
		TotalPoints:  result.TotalPoints,
		PercentScore: result.PercentScore,
	}))

	return &FinishAttemptResponse{
		AttemptID:    attempt.ID,
		Score:        result.Score,
		TotalPoints:  result.TotalPoints,
		PercentScore: result.PercentScore,
		FinishedAt:   finishedAt,
	}, nil
}

func (s *attemptService) GetWithDetails(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithExam(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != userID && role != models.RoleTeacher && role != models.RoleAdmin {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "attempt belongs to another student")
	}

	return s.buildResponse(ctx, attempt, userID, role)
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, userID string, role models.UserRole) ([]*models.Attempt, int64, error) {
	// Students only ever see their own attempts.
	if role != models.RoleTeacher && role != models.RoleAdmin {
		filters.StudentID = &userID
	}
	return s.repo.Attempt().List(ctx, nil, filters)
}

func (s *attemptService) GetStats(ctx context.Context, examID uint, userID string) (*repositories.AttemptStats, error) {
	if _, err := s.repo.Exam().GetByID(ctx, nil, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return s.repo.Attempt().GetStats(ctx, nil, examID)
}

// linkSubmission upserts the assignment submission for every assignment the
// finished attempt fulfills. Attempts issued via an assignment carry its id;
// self-started attempts are matched by looking up assignments referencing the
// exam, so issuing and starting can happen in either order. Best effort: a
// failure here must not undo a finished attempt.
func (s *attemptService) linkSubmission(ctx context.Context, attempt *models.Attempt, finishedAt time.Time) {
	var assignmentIDs []uint
	if attempt.AssignmentID != nil {
		assignmentIDs = []uint{*attempt.AssignmentID}
	} else {
		assignments, err := s.repo.Assignment().GetByExam(ctx, nil, attempt.ExamID)
		if err != nil {
			s.logger.Error("failed to look up assignments for exam",
				"attempt_id", attempt.ID,
				"exam_id", attempt.ExamID,
				"error", err)
			return
		}
		for _, assignment := range assignments {
			assignmentIDs = append(assignmentIDs, assignment.ID)
		}
	}

	attemptID := attempt.ID
	for _, assignmentID := range assignmentIDs {
		submission := &models.AssignmentSubmission{
			AssignmentID: assignmentID,
			StudentID:    attempt.StudentID,
			AttemptID:    &attemptID,
			SubmittedAt:  &finishedAt,
		}
		if err := s.repo.Assignment().UpsertSubmission(ctx, nil, submission); err != nil {
			s.logger.Error("failed to link attempt to submission",
				"attempt_id", attempt.ID,
				"assignment_id", assignmentID,
				"error", err)
			continue
		}

		s.publishEvent(ctx, events.NewEvent(events.SubmissionLinked, events.SubmissionLinkedData{
			AssignmentID: assignmentID,
			StudentID:    attempt.StudentID,
			AttemptID:    attempt.ID,
		}))
	}
}

func (s *attemptService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", event.Type, "error", err)
	}
}
