package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func newExamFixture(t *testing.T) (*mockRepository, ExamService) {
	t.Helper()
	repo := newMockRepository()
	return repo, NewExamService(repo, validator.New(), testLogger())
}

func validExamRequest(kind models.ExamKind) *ExamCreateRequest {
	return &ExamCreateRequest{
		Title:           "Geometry Final",
		Kind:            kind,
		DurationMinutes: 60,
		Questions: []QuestionCreateRequest{
			{
				Text:   "Which shapes have four sides?",
				Points: 2,
				Answers: []AnswerCreateRequest{
					{Text: "Square", IsCorrect: true},
					{Text: "Rectangle", IsCorrect: kind == models.KindQuiz},
					{Text: "Triangle"},
				},
			},
		},
	}
}

func TestExamService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a draft with questions", func(t *testing.T) {
		repo, svc := newExamFixture(t)
		exam, err := svc.Create(ctx, validExamRequest(models.KindQuiz), "teacher-1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if exam.Status != models.ExamDraft {
			t.Errorf("status = %s, want draft", exam.Status)
		}
		stored, _ := repo.Exam().GetByIDWithQuestions(ctx, nil, exam.ID)
		if len(stored.Questions) != 1 || len(stored.Questions[0].Answers) != 3 {
			t.Errorf("stored %d questions, want 1 with 3 answers", len(stored.Questions))
		}
	})

	t.Run("rejects a question with no correct answer", func(t *testing.T) {
		_, svc := newExamFixture(t)
		req := validExamRequest(models.KindQuiz)
		for i := range req.Questions[0].Answers {
			req.Questions[0].Answers[i].IsCorrect = false
		}

		_, err := svc.Create(ctx, req, "teacher-1")
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Fatalf("error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("rejects multiple correct answers on a single-choice exam", func(t *testing.T) {
		_, svc := newExamFixture(t)
		req := validExamRequest(models.KindExam)
		req.Questions[0].Answers[1].IsCorrect = true

		_, err := svc.Create(ctx, req, "teacher-1")
		var ruleErr *BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Fatalf("error = %v, want BusinessRuleError", err)
		}
	})

	t.Run("rejects a missing title", func(t *testing.T) {
		_, svc := newExamFixture(t)
		req := validExamRequest(models.KindQuiz)
		req.Title = ""

		_, err := svc.Create(ctx, req, "teacher-1")
		var vErrs ValidationErrors
		if !errors.As(err, &vErrs) {
			t.Fatalf("error = %v, want ValidationErrors", err)
		}
	})
}

func TestExamService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes a draft with questions", func(t *testing.T) {
		repo, svc := newExamFixture(t)
		exam, _ := svc.Create(ctx, validExamRequest(models.KindQuiz), "teacher-1")

		if err := svc.Publish(ctx, exam.ID, "teacher-1"); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		stored, _ := repo.Exam().GetByID(ctx, nil, exam.ID)
		if stored.Status != models.ExamActive {
			t.Errorf("status = %s, want active", stored.Status)
		}
	})

	t.Run("refuses an empty exam", func(t *testing.T) {
		_, svc := newExamFixture(t)
		req := validExamRequest(models.KindQuiz)
		req.Questions = nil
		exam, _ := svc.Create(ctx, req, "teacher-1")

		if err := svc.Publish(ctx, exam.ID, "teacher-1"); !errors.Is(err, ErrExamHasNoQuestions) {
			t.Errorf("error = %v, want ErrExamHasNoQuestions", err)
		}
	})

	t.Run("refuses another teacher's exam", func(t *testing.T) {
		repo, svc := newExamFixture(t)
		repo.users["teacher-2"] = &models.User{ID: "teacher-2", Role: models.RoleTeacher}
		exam, _ := svc.Create(ctx, validExamRequest(models.KindQuiz), "teacher-1")

		err := svc.Publish(ctx, exam.ID, "teacher-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("admins may publish any exam", func(t *testing.T) {
		repo, svc := newExamFixture(t)
		repo.users["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin}
		exam, _ := svc.Create(ctx, validExamRequest(models.KindQuiz), "teacher-1")

		if err := svc.Publish(ctx, exam.ID, "admin-1"); err != nil {
			t.Errorf("Publish() as admin error = %v", err)
		}
	})
}

func TestExamService_GetByID_StudentView(t *testing.T) {
	ctx := context.Background()
	repo, svc := newExamFixture(t)
	exam := seedExam(repo, models.KindQuiz)

	got, err := svc.GetByID(ctx, exam.ID, "student-1", models.RoleStudent)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	for _, q := range got.Questions {
		for _, a := range q.Answers {
			if a.IsCorrect {
				t.Fatalf("answer key leaked to a student on answer %d", a.ID)
			}
		}
	}

	// Draft exams are invisible to students.
	exam.Status = models.ExamDraft
	if _, err := svc.GetByID(ctx, exam.ID, "student-1", models.RoleStudent); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("error = %v, want ErrExamNotFound for a draft", err)
	}
}

func TestExamService_AddQuestion(t *testing.T) {
	ctx := context.Background()
	repo, svc := newExamFixture(t)
	exam, _ := svc.Create(ctx, validExamRequest(models.KindQuiz), "teacher-1")

	q, err := svc.AddQuestion(ctx, exam.ID, &QuestionCreateRequest{
		Text:   "Is a circle a polygon?",
		Points: 1,
		Answers: []AnswerCreateRequest{
			{Text: "Yes"},
			{Text: "No", IsCorrect: true},
		},
	}, "teacher-1")
	if err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}
	if q.ID == 0 || q.ExamID != exam.ID {
		t.Errorf("question = %+v, want persisted under exam %d", q, exam.ID)
	}

	count, _ := repo.Exam().CountQuestions(ctx, nil, exam.ID)
	if count != 2 {
		t.Errorf("question count = %d, want 2", count)
	}
}
