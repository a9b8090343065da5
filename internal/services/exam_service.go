package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    utils.Logger
}

func NewExamService(repo repositories.Repository, v *validator.Validator, logger utils.Logger) ExamService {
	return &examService{
		repo:      repo,
		validator: v,
		logger:    logger,
	}
}

func (s *examService) Create(ctx context.Context, req *ExamCreateRequest, creatorID string) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	for i := range req.Questions {
		if err := validateQuestionPayload(&req.Questions[i], req.Kind); err != nil {
			return nil, err
		}
	}

	exam := &models.Exam{
		Title:              req.Title,
		Description:        req.Description,
		Kind:               req.Kind,
		Status:             models.ExamDraft,
		DurationMinutes:    req.DurationMinutes,
		ShowCorrectAnswers: req.ShowCorrectAnswers,
		CreatedBy:          creatorID,
	}
	for i := range req.Questions {
		exam.Questions = append(exam.Questions, buildQuestion(&req.Questions[i]))
	}

	if err := s.repo.Exam().Create(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("exam created", "exam_id", exam.ID, "kind", exam.Kind, "created_by", creatorID)
	return exam, nil
}

func (s *examService) AddQuestion(ctx context.Context, examID uint, req *QuestionCreateRequest, userID string) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getOwnedExam(ctx, examID, userID, "add question")
	if err != nil {
		return nil, err
	}
	if exam.Status == models.ExamArchived {
		return nil, NewBusinessRuleError("exam_archived", "cannot modify an archived exam", map[string]interface{}{
			"exam_id": examID,
		})
	}
	if err := validateQuestionPayload(req, exam.Kind); err != nil {
		return nil, err
	}

	question := buildQuestion(req)
	question.ExamID = examID
	if err := s.repo.Exam().AddQuestion(ctx, nil, &question); err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	return &question, nil
}

func (s *examService) GetByID(ctx context.Context, examID uint, userID string, role models.UserRole) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	// Students never see the answer key through the authoring endpoint.
	if role != models.RoleTeacher && role != models.RoleAdmin {
		if exam.Status != models.ExamActive {
			return nil, ErrExamNotFound
		}
		stripCorrectFlags(exam)
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, userID string, role models.UserRole) (*ExamListResponse, error) {
	if role != models.RoleTeacher && role != models.RoleAdmin {
		active := models.ExamActive
		filters.Status = &active
	}

	exams, total, err := s.repo.Exam().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return &ExamListResponse{Exams: exams, Total: total}, nil
}

// Publish activates a draft exam. An exam with no questions cannot go live.
func (s *examService) Publish(ctx context.Context, examID uint, userID string) error {
	exam, err := s.getOwnedExam(ctx, examID, userID, "publish")
	if err != nil {
		return err
	}
	if exam.Status == models.ExamActive {
		return nil
	}
	if exam.Status == models.ExamArchived {
		return NewBusinessRuleError("exam_archived", "cannot publish an archived exam", map[string]interface{}{
			"exam_id": examID,
		})
	}

	count, err := s.repo.Exam().CountQuestions(ctx, nil, examID)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count == 0 {
		return ErrExamHasNoQuestions
	}

	if err := s.repo.Exam().UpdateStatus(ctx, nil, examID, models.ExamActive); err != nil {
		return fmt.Errorf("failed to publish exam: %w", err)
	}
	s.logger.Info("exam published", "exam_id", examID, "published_by", userID)
	return nil
}

func (s *examService) Archive(ctx context.Context, examID uint, userID string) error {
	if _, err := s.getOwnedExam(ctx, examID, userID, "archive"); err != nil {
		return err
	}
	if err := s.repo.Exam().UpdateStatus(ctx, nil, examID, models.ExamArchived); err != nil {
		return fmt.Errorf("failed to archive exam: %w", err)
	}
	s.logger.Info("exam archived", "exam_id", examID, "archived_by", userID)
	return nil
}

// getOwnedExam loads the exam and checks the caller owns it. Admins may
// manage any exam.
func (s *examService) getOwnedExam(ctx context.Context, examID uint, userID, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.CreatedBy != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil || !isAdmin {
			return nil, NewPermissionError(userID, examID, "exam", action, "exam belongs to another teacher")
		}
	}
	return exam, nil
}

// validateQuestionPayload enforces answer-set shape per exam kind: every
// question needs at least one correct answer, and single-choice exams allow
// exactly one.
func validateQuestionPayload(req *QuestionCreateRequest, kind models.ExamKind) error {
	correct := 0
	for _, a := range req.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return NewBusinessRuleError("question_no_correct_answer", "question must have at least one correct answer", map[string]interface{}{
			"text": req.Text,
		})
	}
	if kind == models.KindExam && correct > 1 {
		return NewBusinessRuleError("single_choice_multiple_correct", "single-choice exam questions allow exactly one correct answer", map[string]interface{}{
			"text":    req.Text,
			"correct": correct,
		})
	}
	return nil
}

func buildQuestion(req *QuestionCreateRequest) models.Question {
	q := models.Question{
		Text:     req.Text,
		MediaURL: req.MediaURL,
		Points:   req.Points,
		Position: req.Position,
	}
	for _, a := range req.Answers {
		q.Answers = append(q.Answers, models.Answer{
			Text:      a.Text,
			IsCorrect: a.IsCorrect,
			Position:  a.Position,
		})
	}
	return q
}

func stripCorrectFlags(exam *models.Exam) {
	for i := range exam.Questions {
		for j := range exam.Questions[i].Answers {
			exam.Questions[i].Answers[j].IsCorrect = false
		}
	}
}
