package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

func requireInProgress(attempt *models.Attempt) error {
	switch attempt.Status {
	case models.AttemptNotStarted:
		return ErrAttemptNotStarted
	case models.AttemptFinished:
		return ErrAttemptAlreadyFinished
	}
	return nil
}

func findQuestion(exam *models.Exam, questionID uint) *models.Question {
	if exam == nil {
		return nil
	}
	for i := range exam.Questions {
		if exam.Questions[i].ID == questionID {
			return &exam.Questions[i]
		}
	}
	return nil
}

func findAnswer(question *models.Question, answerID uint) *models.Answer {
	for i := range question.Answers {
		if question.Answers[i].ID == answerID {
			return &question.Answers[i]
		}
	}
	return nil
}

// quizSelectionScaffold builds the unpicked row per (question, answer) that a
// quiz attempt carries from the moment it starts.
func quizSelectionScaffold(attempt *models.Attempt) []models.AnswerSelection {
	var rows []models.AnswerSelection
	for _, q := range attempt.Exam.Questions {
		for _, a := range q.Answers {
			rows = append(rows, models.AnswerSelection{
				AttemptID:  attempt.ID,
				QuestionID: q.ID,
				AnswerID:   a.ID,
				Selected:   false,
			})
		}
	}
	return rows
}

// buildResponse renders the attempt for the given viewer. Correct-answer
// flags are only included once the attempt is finished, and then only when
// the exam allows revealing them or the viewer is staff.
func (s *attemptService) buildResponse(ctx context.Context, attempt *models.Attempt, userID string, role models.UserRole) (*AttemptResponse, error) {
	resp := &AttemptResponse{Attempt: attempt}
	if attempt.Exam == nil {
		return resp, nil
	}

	resp.ExamTitle = attempt.Exam.Title
	resp.ExamKind = attempt.Exam.Kind
	resp.DurationMinutes = attempt.Exam.DurationMinutes

	selections, err := s.repo.Selection().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	marks, err := s.repo.Selection().GetReviewMarks(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review marks: %w", err)
	}

	selectedByQuestion := make(map[uint][]uint)
	for _, sel := range selections {
		if sel.Selected {
			selectedByQuestion[sel.QuestionID] = append(selectedByQuestion[sel.QuestionID], sel.AnswerID)
		}
	}
	markedQuestions := make(map[uint]bool)
	for _, m := range marks {
		markedQuestions[m.QuestionID] = m.Marked
	}

	showCorrect := s.shouldShowCorrectAnswers(attempt, role)

	resp.Questions = make([]QuestionView, 0, len(attempt.Exam.Questions))
	for i := range attempt.Exam.Questions {
		q := &attempt.Exam.Questions[i]
		view := QuestionView{
			ID:           q.ID,
			Text:         q.Text,
			MediaURL:     q.MediaURL,
			Points:       q.Points,
			Position:     q.Position,
			SelectedIDs:  selectedByQuestion[q.ID],
			MarkedReview: markedQuestions[q.ID],
			Answers:      make([]AnswerView, 0, len(q.Answers)),
		}
		if view.SelectedIDs == nil {
			view.SelectedIDs = []uint{}
		}
		for _, a := range q.Answers {
			av := AnswerView{ID: a.ID, Text: a.Text, Position: a.Position}
			if showCorrect {
				isCorrect := a.IsCorrect
				av.IsCorrect = &isCorrect
			}
			view.Answers = append(view.Answers, av)
		}
		resp.Questions = append(resp.Questions, view)
	}

	return resp, nil
}

func (s *attemptService) shouldShowCorrectAnswers(attempt *models.Attempt, role models.UserRole) bool {
	if role == models.RoleTeacher || role == models.RoleAdmin {
		return true
	}
	return attempt.IsFinished() && attempt.Exam != nil && attempt.Exam.ShowCorrectAnswers
}
