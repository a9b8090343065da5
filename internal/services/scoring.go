package services

import (
	"math"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// QuestionScore is the per-question outcome of an evaluation
type QuestionScore struct {
	QuestionID uint
	Points     int
	Earned     int
	Correct    bool
}

// ScoreResult aggregates the evaluation of a whole attempt
type ScoreResult struct {
	Score        int
	TotalPoints  int
	PercentScore int
	Questions    []QuestionScore
}

// EvaluateAttempt scores the selections recorded for an attempt against the
// exam's answer key. Quiz questions award full points only when the selected
// set matches the correct set exactly; exam questions award full points when
// the single chosen answer is one of the correct answers. There is no partial
// credit and no negative scoring.
func EvaluateAttempt(exam *models.Exam, selections []*models.AnswerSelection) *ScoreResult {
	selectedByQuestion := make(map[uint]map[uint]bool)
	for _, sel := range selections {
		if !sel.Selected {
			continue
		}
		if selectedByQuestion[sel.QuestionID] == nil {
			selectedByQuestion[sel.QuestionID] = make(map[uint]bool)
		}
		selectedByQuestion[sel.QuestionID][sel.AnswerID] = true
	}

	result := &ScoreResult{
		Questions: make([]QuestionScore, 0, len(exam.Questions)),
	}

	for i := range exam.Questions {
		q := &exam.Questions[i]
		qs := QuestionScore{QuestionID: q.ID, Points: q.Points}
		result.TotalPoints += q.Points

		selected := selectedByQuestion[q.ID]
		switch exam.Kind {
		case models.KindQuiz:
			qs.Correct = quizQuestionCorrect(q, selected)
		default:
			qs.Correct = examQuestionCorrect(q, selected)
		}
		if qs.Correct {
			qs.Earned = q.Points
			result.Score += q.Points
		}
		result.Questions = append(result.Questions, qs)
	}

	result.PercentScore = percentOf(result.Score, result.TotalPoints)
	return result
}

// quizQuestionCorrect requires the selected answer set to equal the correct
// answer set. Questions with no correct answers are only satisfied by an
// empty selection.
func quizQuestionCorrect(q *models.Question, selected map[uint]bool) bool {
	correct := make(map[uint]bool)
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct[a.ID] = true
		}
	}
	if len(selected) != len(correct) {
		return false
	}
	for id := range correct {
		if !selected[id] {
			return false
		}
	}
	return true
}

// examQuestionCorrect requires exactly one recorded choice, and that choice
// must be marked correct.
func examQuestionCorrect(q *models.Question, selected map[uint]bool) bool {
	if len(selected) != 1 {
		return false
	}
	for _, a := range q.Answers {
		if a.IsCorrect && selected[a.ID] {
			return true
		}
	}
	return false
}

// percentOf rounds to the nearest whole percent, 0 when total is 0
func percentOf(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
