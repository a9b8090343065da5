package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// mockRepository is an in-memory repositories.Repository. Transactions run
// the callback against the same store, which is enough to exercise service
// semantics without a database.
type mockRepository struct {
	exams       map[uint]*models.Exam
	attempts    map[uint]*models.Attempt
	selections  []*models.AnswerSelection
	reviewMarks []*models.ReviewMark

	courses          map[uint]*models.Course
	prereqs          map[uint][]*models.CoursePrerequisite
	coursesBySubject map[uint][]*models.Course
	lessonCounts     map[uint]int64
	completedCounts  map[string]map[uint]int64
	enrollments      []*models.Enrollment
	rosters          map[uint][]string

	assignments map[uint]*models.Assignment
	submissions map[uint]*models.AssignmentSubmission

	users map[string]*models.User

	nextID uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		exams:            make(map[uint]*models.Exam),
		attempts:         make(map[uint]*models.Attempt),
		courses:          make(map[uint]*models.Course),
		prereqs:          make(map[uint][]*models.CoursePrerequisite),
		coursesBySubject: make(map[uint][]*models.Course),
		lessonCounts:     make(map[uint]int64),
		completedCounts:  make(map[string]map[uint]int64),
		rosters:          make(map[uint][]string),
		assignments:      make(map[uint]*models.Assignment),
		submissions:      make(map[uint]*models.AssignmentSubmission),
		users:            make(map[string]*models.User),
		nextID:           1000,
	}
}

func (m *mockRepository) newID() uint {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) Exam() repositories.ExamRepository             { return &mockExamRepo{m} }
func (m *mockRepository) Attempt() repositories.AttemptRepository       { return &mockAttemptRepo{m} }
func (m *mockRepository) Selection() repositories.SelectionRepository   { return &mockSelectionRepo{m} }
func (m *mockRepository) Course() repositories.CourseRepository         { return &mockCourseRepo{m} }
func (m *mockRepository) Assignment() repositories.AssignmentRepository { return &mockAssignmentRepo{m} }
func (m *mockRepository) User() repositories.UserRepository             { return &mockUserRepo{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) WithSerializableTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== EXAM =====

type mockExamRepo struct{ m *mockRepository }

func (r *mockExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	exam.ID = r.m.newID()
	for i := range exam.Questions {
		exam.Questions[i].ID = r.m.newID()
		exam.Questions[i].ExamID = exam.ID
		for j := range exam.Questions[i].Answers {
			exam.Questions[i].Answers[j].ID = r.m.newID()
			exam.Questions[i].Answers[j].QuestionID = exam.Questions[i].ID
		}
	}
	r.m.exams[exam.ID] = exam
	return nil
}

func (r *mockExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, ok := r.m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (r *mockExamRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *mockExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if _, ok := r.m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.exams[exam.ID] = exam
	return nil
}

func (r *mockExamRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ExamStatus) error {
	exam, ok := r.m.exams[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exam.Status = status
	return nil
}

func (r *mockExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.m.exams, id)
	return nil
}

func (r *mockExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var out []*models.Exam
	for _, exam := range r.m.exams {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		if filters.CreatedBy != nil && exam.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, exam)
	}
	return out, int64(len(out)), nil
}

func (r *mockExamRepo) AddQuestion(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	exam, ok := r.m.exams[question.ExamID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	question.ID = r.m.newID()
	for i := range question.Answers {
		question.Answers[i].ID = r.m.newID()
		question.Answers[i].QuestionID = question.ID
	}
	exam.Questions = append(exam.Questions, *question)
	return nil
}

func (r *mockExamRepo) CountQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	exam, ok := r.m.exams[examID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return int64(len(exam.Questions)), nil
}

// ===== ATTEMPT =====

type mockAttemptRepo struct{ m *mockRepository }

func (r *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	attempt.ID = r.m.newID()
	if attempt.Status == "" {
		attempt.Status = models.AttemptNotStarted
	}
	r.m.attempts[attempt.ID] = attempt
	return nil
}

func (r *mockAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	attempt, ok := r.m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (r *mockAttemptRepo) GetByIDWithExam(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	attempt, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	attempt.Exam = r.m.exams[attempt.ExamID]
	return attempt, nil
}

func (r *mockAttemptRepo) GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.Attempt, error) {
	for _, attempt := range r.m.attempts {
		if attempt.ExamID == examID && attempt.StudentID == studentID {
			return attempt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	if _, ok := r.m.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.attempts[attempt.ID] = attempt
	return nil
}

func (r *mockAttemptRepo) Complete(ctx context.Context, tx *gorm.DB, id uint, finishedAt time.Time, score, totalPoints, percentScore int) error {
	attempt, ok := r.m.attempts[id]
	if !ok || attempt.Status != models.AttemptInProgress {
		return gorm.ErrRecordNotFound
	}
	attempt.Status = models.AttemptFinished
	attempt.FinishedAt = &finishedAt
	attempt.Score = &score
	attempt.TotalPoints = &totalPoints
	attempt.PercentScore = &percentScore
	return nil
}

func (r *mockAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var out []*models.Attempt
	for _, attempt := range r.m.attempts {
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		if filters.ExamID != nil && attempt.ExamID != *filters.ExamID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		out = append(out, attempt)
	}
	return out, int64(len(out)), nil
}

func (r *mockAttemptRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	filters.ExamID = &examID
	return r.List(ctx, tx, filters)
}

func (r *mockAttemptRepo) GetStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.AttemptStats, error) {
	stats := &repositories.AttemptStats{}
	var percentSum float64
	for _, attempt := range r.m.attempts {
		if attempt.ExamID != examID {
			continue
		}
		stats.Total++
		switch attempt.Status {
		case models.AttemptNotStarted:
			stats.NotStarted++
		case models.AttemptInProgress:
			stats.InProgress++
		case models.AttemptFinished:
			stats.Finished++
			if attempt.PercentScore != nil {
				percentSum += float64(*attempt.PercentScore)
			}
		}
	}
	if stats.Finished > 0 {
		avg := percentSum / float64(stats.Finished)
		stats.AveragePercent = &avg
	}
	return stats, nil
}

// ===== SELECTION =====

type mockSelectionRepo struct{ m *mockRepository }

func (r *mockSelectionRepo) BulkCreate(ctx context.Context, tx *gorm.DB, selections []models.AnswerSelection) error {
	for i := range selections {
		sel := selections[i]
		sel.ID = r.m.newID()
		r.m.selections = append(r.m.selections, &sel)
	}
	return nil
}

func (r *mockSelectionRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AnswerSelection, error) {
	var out []*models.AnswerSelection
	for _, sel := range r.m.selections {
		if sel.AttemptID == attemptID {
			out = append(out, sel)
		}
	}
	return out, nil
}

func (r *mockSelectionRepo) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) ([]*models.AnswerSelection, error) {
	var out []*models.AnswerSelection
	for _, sel := range r.m.selections {
		if sel.AttemptID == attemptID && sel.QuestionID == questionID {
			out = append(out, sel)
		}
	}
	return out, nil
}

func (r *mockSelectionRepo) Upsert(ctx context.Context, tx *gorm.DB, selection *models.AnswerSelection) error {
	for _, sel := range r.m.selections {
		if sel.AttemptID == selection.AttemptID && sel.QuestionID == selection.QuestionID && sel.AnswerID == selection.AnswerID {
			sel.Selected = selection.Selected
			return nil
		}
	}
	selection.ID = r.m.newID()
	r.m.selections = append(r.m.selections, selection)
	return nil
}

func (r *mockSelectionRepo) DeleteForQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) error {
	var kept []*models.AnswerSelection
	for _, sel := range r.m.selections {
		if sel.AttemptID == attemptID && sel.QuestionID == questionID {
			continue
		}
		kept = append(kept, sel)
	}
	r.m.selections = kept
	return nil
}

func (r *mockSelectionRepo) SetReviewMark(ctx context.Context, tx *gorm.DB, mark *models.ReviewMark) error {
	for _, existing := range r.m.reviewMarks {
		if existing.AttemptID == mark.AttemptID && existing.QuestionID == mark.QuestionID {
			existing.Marked = mark.Marked
			return nil
		}
	}
	mark.ID = r.m.newID()
	r.m.reviewMarks = append(r.m.reviewMarks, mark)
	return nil
}

func (r *mockSelectionRepo) GetReviewMarks(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.ReviewMark, error) {
	var out []*models.ReviewMark
	for _, mark := range r.m.reviewMarks {
		if mark.AttemptID == attemptID && mark.Marked {
			out = append(out, mark)
		}
	}
	return out, nil
}

// ===== COURSE =====

type mockCourseRepo struct{ m *mockRepository }

func (r *mockCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	course, ok := r.m.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (r *mockCourseRepo) GetPrerequisites(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CoursePrerequisite, error) {
	return r.m.prereqs[courseID], nil
}

func (r *mockCourseRepo) GetCoursesBySubject(ctx context.Context, tx *gorm.DB, subjectID uint) ([]*models.Course, error) {
	return r.m.coursesBySubject[subjectID], nil
}

func (r *mockCourseRepo) CountLessons(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	return r.m.lessonCounts[courseID], nil
}

func (r *mockCourseRepo) CountCompletedLessons(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (int64, error) {
	return r.m.completedCounts[studentID][courseID], nil
}

func (r *mockCourseRepo) CreateEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	enrollment.ID = r.m.newID()
	r.m.enrollments = append(r.m.enrollments, enrollment)
	return nil
}

func (r *mockCourseRepo) IsEnrolled(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	for _, e := range r.m.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockCourseRepo) GetRoster(ctx context.Context, tx *gorm.DB, courseID uint) ([]string, error) {
	return r.m.rosters[courseID], nil
}

// ===== ASSIGNMENT =====

type mockAssignmentRepo struct{ m *mockRepository }

func (r *mockAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	assignment.ID = r.m.newID()
	r.m.assignments[assignment.ID] = assignment
	return nil
}

func (r *mockAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	assignment, ok := r.m.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (r *mockAssignmentRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range r.m.assignments {
		if a.ExamID != nil && *a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *mockAssignmentRepo) UpsertSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	for _, existing := range r.m.submissions {
		if existing.AssignmentID == submission.AssignmentID && existing.StudentID == submission.StudentID {
			if submission.AttemptID != nil {
				existing.AttemptID = submission.AttemptID
			}
			if submission.FileURL != nil {
				existing.FileURL = submission.FileURL
			}
			if submission.SubmittedAt != nil {
				existing.SubmittedAt = submission.SubmittedAt
			}
			return nil
		}
	}
	submission.ID = r.m.newID()
	r.m.submissions[submission.ID] = submission
	return nil
}

func (r *mockAssignmentRepo) GetSubmission(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.AssignmentSubmission, error) {
	for _, s := range r.m.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAssignmentRepo) GetSubmissionByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentSubmission, error) {
	submission, ok := r.m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *mockAssignmentRepo) ListSubmissions(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.AssignmentSubmission, error) {
	var out []*models.AssignmentSubmission
	for _, s := range r.m.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *mockAssignmentRepo) UpdateSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	if _, ok := r.m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.submissions[submission.ID] = submission
	return nil
}

// ===== USER =====

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *mockUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.m.users[id]
	return ok, nil
}

func (r *mockUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, ok := r.m.users[id]
	if !ok {
		return false, nil
	}
	return user.Role == role, nil
}

func (r *mockUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.m.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

// ===== FIXTURES =====

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// seedExam creates an active exam with two questions: Q1 worth 2 points with
// two correct answers out of four, Q2 worth 1 point with one correct answer
// out of three.
func seedExam(m *mockRepository, kind models.ExamKind) *models.Exam {
	exam := &models.Exam{
		Title:           "Algebra Midterm",
		Kind:            kind,
		Status:          models.ExamActive,
		DurationMinutes: 45,
		CreatedBy:       "teacher-1",
		Questions: []models.Question{
			{
				Text:   "Select the prime numbers",
				Points: 2,
				Answers: []models.Answer{
					{Text: "2", IsCorrect: true, Position: 0},
					{Text: "3", IsCorrect: true, Position: 1},
					{Text: "4", Position: 2},
					{Text: "6", Position: 3},
				},
			},
			{
				Text:   "What is 2+2?",
				Points: 1,
				Answers: []models.Answer{
					{Text: "3", Position: 0},
					{Text: "4", IsCorrect: true, Position: 1},
					{Text: "5", Position: 2},
				},
			},
		},
	}
	if kind == models.KindExam {
		// Single choice: drop the second correct answer of Q1.
		exam.Questions[0].Answers[1].IsCorrect = false
	}
	_ = (&mockExamRepo{m}).Create(context.Background(), nil, exam)
	return exam
}

func seedAttempt(m *mockRepository, exam *models.Exam, studentID string, status models.AttemptStatus) *models.Attempt {
	attempt := &models.Attempt{
		ExamID:    exam.ID,
		StudentID: studentID,
		Status:    status,
	}
	if status != models.AttemptNotStarted {
		now := time.Now().UTC()
		attempt.StartedAt = &now
	}
	_ = (&mockAttemptRepo{m}).Create(context.Background(), nil, attempt)
	return attempt
}
