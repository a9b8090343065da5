package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func newAttemptFixture(t *testing.T) (*mockRepository, *events.MockEventPublisher, AttemptService) {
	t.Helper()
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher()
	svc := NewAttemptService(repo, validator.New(), publisher, testLogger())
	return repo, publisher, svc
}

func TestAttemptService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a pre-created quiz attempt and scaffolds selections", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		resp, err := svc.Start(ctx, attempt.ID, "student-1", &StartAttemptRequest{})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if resp.Status != models.AttemptInProgress {
			t.Errorf("status = %s, want in_progress", resp.Status)
		}
		if resp.StartedAt == nil {
			t.Error("started_at not set")
		}

		// One unpicked row per (question, answer): 4 + 3.
		selections, _ := repo.Selection().GetByAttempt(ctx, nil, attempt.ID)
		if len(selections) != 7 {
			t.Errorf("scaffolded %d selections, want 7", len(selections))
		}
		for _, sel := range selections {
			if sel.Selected {
				t.Errorf("selection %d created as picked", sel.ID)
			}
		}
	})

	t.Run("single-choice attempts start without scaffold", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindExam)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		if _, err := svc.Start(ctx, attempt.ID, "student-1", nil); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		selections, _ := repo.Selection().GetByAttempt(ctx, nil, attempt.ID)
		if len(selections) != 0 {
			t.Errorf("scaffolded %d selections, want 0", len(selections))
		}
	})

	t.Run("rejects restarting an attempt in progress", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		if _, err := svc.Start(ctx, attempt.ID, "student-1", nil); !errors.Is(err, ErrAttemptAlreadyStarted) {
			t.Errorf("error = %v, want ErrAttemptAlreadyStarted", err)
		}
	})

	t.Run("rejects starting a finished attempt", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptFinished)

		if _, err := svc.Start(ctx, attempt.ID, "student-1", nil); !errors.Is(err, ErrAttemptAlreadyFinished) {
			t.Errorf("error = %v, want ErrAttemptAlreadyFinished", err)
		}
	})

	t.Run("rejects another student's attempt", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		_, err := svc.Start(ctx, attempt.ID, "student-2", nil)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("rejects inactive exam", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		exam.Status = models.ExamDraft
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		if _, err := svc.Start(ctx, attempt.ID, "student-1", nil); !errors.Is(err, ErrExamNotActive) {
			t.Errorf("error = %v, want ErrExamNotActive", err)
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, _, svc := newAttemptFixture(t)
		if _, err := svc.Start(ctx, 999, "student-1", nil); !errors.Is(err, ErrAttemptNotFound) {
			t.Errorf("error = %v, want ErrAttemptNotFound", err)
		}
	})
}

func TestAttemptService_StartByExam(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and starts when no attempt exists", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)

		resp, err := svc.StartByExam(ctx, exam.ID, "student-1", nil)
		if err != nil {
			t.Fatalf("StartByExam() error = %v", err)
		}
		if resp.Status != models.AttemptInProgress {
			t.Errorf("status = %s, want in_progress", resp.Status)
		}
		if resp.ExamTitle != exam.Title {
			t.Errorf("exam title = %q, want %q", resp.ExamTitle, exam.Title)
		}
	})

	t.Run("reuses a provisioned attempt", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		resp, err := svc.StartByExam(ctx, exam.ID, "student-1", nil)
		if err != nil {
			t.Fatalf("StartByExam() error = %v", err)
		}
		if resp.ID != attempt.ID {
			t.Errorf("started attempt %d, want provisioned %d", resp.ID, attempt.ID)
		}
	})

	t.Run("resumes an in-progress attempt", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)

		first, err := svc.StartByExam(ctx, exam.ID, "student-1", nil)
		if err != nil {
			t.Fatalf("StartByExam() error = %v", err)
		}

		second, err := svc.StartByExam(ctx, exam.ID, "student-1", nil)
		if err != nil {
			t.Fatalf("StartByExam() resume error = %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("resumed attempt %d, want %d", second.ID, first.ID)
		}
		if second.Status != models.AttemptInProgress {
			t.Errorf("status = %s, want in_progress", second.Status)
		}

		// Resuming must not rebuild the selection scaffold.
		selections, err := repo.Selection().GetByAttempt(ctx, nil, first.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(selections) != 7 {
			t.Errorf("selection rows = %d, want 7", len(selections))
		}
	})

	t.Run("finished attempt blocks re-taking", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		seedAttempt(repo, exam, "student-1", models.AttemptFinished)

		if _, err := svc.StartByExam(ctx, exam.ID, "student-1", nil); !errors.Is(err, ErrAttemptAlreadyFinished) {
			t.Errorf("error = %v, want ErrAttemptAlreadyFinished", err)
		}
	})
}

func TestAttemptService_RecordAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("quiz toggles the named selection row", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
		q := exam.Questions[0]

		err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: q.ID,
			AnswerID:   q.Answers[0].ID,
		})
		if err != nil {
			t.Fatalf("RecordAnswer() error = %v", err)
		}

		off := false
		err = svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: q.ID,
			AnswerID:   q.Answers[0].ID,
			Selected:   &off,
		})
		if err != nil {
			t.Fatalf("RecordAnswer() deselect error = %v", err)
		}

		selections, _ := repo.Selection().GetByAttemptAndQuestion(ctx, nil, attempt.ID, q.ID)
		for _, sel := range selections {
			if sel.Selected {
				t.Errorf("answer %d still selected after deselect", sel.AnswerID)
			}
		}
	})

	t.Run("single choice replaces the previous pick", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindExam)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
		q := exam.Questions[0]

		for _, answerID := range []uint{q.Answers[0].ID, q.Answers[1].ID} {
			err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
				QuestionID: q.ID,
				AnswerID:   answerID,
			})
			if err != nil {
				t.Fatalf("RecordAnswer() error = %v", err)
			}
		}

		selections, _ := repo.Selection().GetByAttemptAndQuestion(ctx, nil, attempt.ID, q.ID)
		if len(selections) != 1 {
			t.Fatalf("kept %d selections, want 1", len(selections))
		}
		if selections[0].AnswerID != q.Answers[1].ID {
			t.Errorf("kept answer %d, want the latest pick %d", selections[0].AnswerID, q.Answers[1].ID)
		}
	})

	t.Run("rejects before start", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)
		q := exam.Questions[0]

		err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: q.ID,
			AnswerID:   q.Answers[0].ID,
		})
		if !errors.Is(err, ErrAttemptNotStarted) {
			t.Errorf("error = %v, want ErrAttemptNotStarted", err)
		}
	})

	t.Run("rejects after finish without mutating state", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptFinished)
		q := exam.Questions[0]

		err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: q.ID,
			AnswerID:   q.Answers[0].ID,
		})
		if !errors.Is(err, ErrAttemptAlreadyFinished) {
			t.Errorf("error = %v, want ErrAttemptAlreadyFinished", err)
		}
		selections, _ := repo.Selection().GetByAttempt(ctx, nil, attempt.ID)
		if len(selections) != 0 {
			t.Errorf("finished attempt gained %d selections", len(selections))
		}
	})

	t.Run("rejects question from another exam", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		other := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: other.Questions[0].ID,
			AnswerID:   other.Questions[0].Answers[0].ID,
		})
		if !errors.Is(err, ErrQuestionNotInExam) {
			t.Errorf("error = %v, want ErrQuestionNotInExam", err)
		}
	})

	t.Run("rejects answer from another question", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{
			QuestionID: exam.Questions[0].ID,
			AnswerID:   exam.Questions[1].Answers[0].ID,
		})
		if !errors.Is(err, ErrAnswerNotInQuestion) {
			t.Errorf("error = %v, want ErrAnswerNotInQuestion", err)
		}
	})
}

func TestAttemptService_MarkForReview(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newAttemptFixture(t)
	exam := seedExam(repo, models.KindQuiz)
	attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
	q := exam.Questions[1]

	if err := svc.MarkForReview(ctx, attempt.ID, "student-1", &ReviewMarkRequest{QuestionID: q.ID, Marked: true}); err != nil {
		t.Fatalf("MarkForReview() error = %v", err)
	}
	marks, _ := repo.Selection().GetReviewMarks(ctx, nil, attempt.ID)
	if len(marks) != 1 || marks[0].QuestionID != q.ID {
		t.Fatalf("marks = %+v, want one mark on question %d", marks, q.ID)
	}

	if err := svc.MarkForReview(ctx, attempt.ID, "student-1", &ReviewMarkRequest{QuestionID: q.ID, Marked: false}); err != nil {
		t.Fatalf("MarkForReview() unmark error = %v", err)
	}
	marks, _ = repo.Selection().GetReviewMarks(ctx, nil, attempt.ID)
	if len(marks) != 0 {
		t.Errorf("marks = %+v, want none after unmark", marks)
	}
}

func TestAttemptService_Finish(t *testing.T) {
	ctx := context.Background()

	t.Run("scores, closes and publishes", func(t *testing.T) {
		repo, publisher, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
		q1, q2 := exam.Questions[0], exam.Questions[1]

		// Q1 exactly right (2 pts), Q2 wrong.
		for _, pick := range []struct{ q, a uint }{
			{q1.ID, q1.Answers[0].ID},
			{q1.ID, q1.Answers[1].ID},
			{q2.ID, q2.Answers[0].ID},
		} {
			if err := svc.RecordAnswer(ctx, attempt.ID, "student-1", &RecordAnswerRequest{QuestionID: pick.q, AnswerID: pick.a}); err != nil {
				t.Fatalf("RecordAnswer() error = %v", err)
			}
		}

		result, err := svc.Finish(ctx, attempt.ID, "student-1")
		if err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		if result.Score != 2 || result.TotalPoints != 3 || result.PercentScore != 67 {
			t.Errorf("got %d/%d at %d%%, want 2/3 at 67%%", result.Score, result.TotalPoints, result.PercentScore)
		}

		stored, _ := repo.Attempt().GetByID(ctx, nil, attempt.ID)
		if !stored.IsFinished() {
			t.Errorf("status = %s, want finished", stored.Status)
		}
		if stored.Score == nil || *stored.Score != 2 {
			t.Errorf("stored score = %v, want 2", stored.Score)
		}
		if stored.FinishedAt == nil {
			t.Error("finished_at not set")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.AttemptFinished {
			t.Fatalf("published = %+v, want one attempt.finished", published)
		}
	})

	t.Run("double finish fails and keeps the first score", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		first, err := svc.Finish(ctx, attempt.ID, "student-1")
		if err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		if _, err := svc.Finish(ctx, attempt.ID, "student-1"); !errors.Is(err, ErrAttemptAlreadyFinished) {
			t.Errorf("second finish error = %v, want ErrAttemptAlreadyFinished", err)
		}

		stored, _ := repo.Attempt().GetByID(ctx, nil, attempt.ID)
		if stored.Score == nil || *stored.Score != first.Score {
			t.Errorf("stored score = %v, want first result %d", stored.Score, first.Score)
		}
	})

	t.Run("finish before start fails", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptNotStarted)

		if _, err := svc.Finish(ctx, attempt.ID, "student-1"); !errors.Is(err, ErrAttemptNotStarted) {
			t.Errorf("error = %v, want ErrAttemptNotStarted", err)
		}
	})

	t.Run("links the assignment submission", func(t *testing.T) {
		repo, publisher, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)

		assignment := &models.Assignment{CourseID: 1, Title: "Week 3 quiz", Type: models.AssignmentExam, ExamID: &exam.ID, CreatedBy: "teacher-1"}
		if err := repo.Assignment().Create(ctx, nil, assignment); err != nil {
			t.Fatal(err)
		}

		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
		attempt.AssignmentID = &assignment.ID

		if _, err := svc.Finish(ctx, attempt.ID, "student-1"); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		submission, err := repo.Assignment().GetSubmission(ctx, nil, assignment.ID, "student-1")
		if err != nil {
			t.Fatalf("submission not linked: %v", err)
		}
		if submission.AttemptID == nil || *submission.AttemptID != attempt.ID {
			t.Errorf("submission attempt = %v, want %d", submission.AttemptID, attempt.ID)
		}
		if !submission.IsSubmitted() {
			t.Error("submission not marked submitted")
		}

		var types []string
		for _, e := range publisher.GetPublishedEvents() {
			types = append(types, e.Type)
		}
		if len(types) != 2 || types[0] != events.SubmissionLinked || types[1] != events.AttemptFinished {
			t.Errorf("published %v, want [submission.linked attempt.finished]", types)
		}
	})

	t.Run("links a self-started attempt to an assignment issued later", func(t *testing.T) {
		repo, publisher, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		// The teacher issues the assignment after the student already started
		// on their own, so the attempt carries no assignment id.
		assignment := &models.Assignment{CourseID: 1, Title: "Week 4 quiz", Type: models.AssignmentExam, ExamID: &exam.ID, CreatedBy: "teacher-1"}
		if err := repo.Assignment().Create(ctx, nil, assignment); err != nil {
			t.Fatal(err)
		}

		if _, err := svc.Finish(ctx, attempt.ID, "student-1"); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		submission, err := repo.Assignment().GetSubmission(ctx, nil, assignment.ID, "student-1")
		if err != nil {
			t.Fatalf("submission not linked: %v", err)
		}
		if submission.AttemptID == nil || *submission.AttemptID != attempt.ID {
			t.Errorf("submission attempt = %v, want %d", submission.AttemptID, attempt.ID)
		}
		if !submission.IsSubmitted() {
			t.Error("submission not marked submitted")
		}

		var types []string
		for _, e := range publisher.GetPublishedEvents() {
			types = append(types, e.Type)
		}
		if len(types) != 2 || types[0] != events.SubmissionLinked || types[1] != events.AttemptFinished {
			t.Errorf("published %v, want [submission.linked attempt.finished]", types)
		}
	})

	t.Run("publish failure does not fail the finish", func(t *testing.T) {
		repo, publisher, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
		publisher.SetFailing(true)

		if _, err := svc.Finish(ctx, attempt.ID, "student-1"); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
	})
}

func TestAttemptService_GetWithDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("hides correctness while in progress", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		exam.ShowCorrectAnswers = true
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		resp, err := svc.GetWithDetails(ctx, attempt.ID, "student-1", models.RoleStudent)
		if err != nil {
			t.Fatalf("GetWithDetails() error = %v", err)
		}
		for _, q := range resp.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect != nil {
					t.Fatalf("correctness leaked on answer %d before finish", a.ID)
				}
			}
		}
	})

	t.Run("reveals correctness after finish when the exam allows it", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		exam.ShowCorrectAnswers = true
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptFinished)

		resp, err := svc.GetWithDetails(ctx, attempt.ID, "student-1", models.RoleStudent)
		if err != nil {
			t.Fatalf("GetWithDetails() error = %v", err)
		}
		if len(resp.Questions) == 0 || resp.Questions[0].Answers[0].IsCorrect == nil {
			t.Fatal("correctness missing after finish on a revealing exam")
		}
	})

	t.Run("keeps correctness hidden when the exam disallows it", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptFinished)

		resp, err := svc.GetWithDetails(ctx, attempt.ID, "student-1", models.RoleStudent)
		if err != nil {
			t.Fatalf("GetWithDetails() error = %v", err)
		}
		for _, q := range resp.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect != nil {
					t.Fatalf("correctness leaked on answer %d", a.ID)
				}
			}
		}
	})

	t.Run("denies other students", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		_, err := svc.GetWithDetails(ctx, attempt.ID, "student-2", models.RoleStudent)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("error = %v, want PermissionError", err)
		}
	})

	t.Run("teachers can inspect any attempt", func(t *testing.T) {
		repo, _, svc := newAttemptFixture(t)
		exam := seedExam(repo, models.KindQuiz)
		attempt := seedAttempt(repo, exam, "student-1", models.AttemptInProgress)

		if _, err := svc.GetWithDetails(ctx, attempt.ID, "teacher-1", models.RoleTeacher); err != nil {
			t.Errorf("GetWithDetails() as teacher error = %v", err)
		}
	})
}

func TestAttemptService_List(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newAttemptFixture(t)
	exam := seedExam(repo, models.KindQuiz)
	seedAttempt(repo, exam, "student-1", models.AttemptInProgress)
	seedAttempt(repo, exam, "student-2", models.AttemptInProgress)

	attempts, total, err := svc.List(ctx, repositories.AttemptFilters{}, "student-1", models.RoleStudent)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(attempts) != 1 || attempts[0].StudentID != "student-1" {
		t.Errorf("students must only see their own attempts, got %d", total)
	}

	_, total, err = svc.List(ctx, repositories.AttemptFilters{}, "teacher-1", models.RoleTeacher)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("teachers see all attempts, got %d, want 2", total)
	}
}
