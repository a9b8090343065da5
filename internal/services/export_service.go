package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var resultColumns = []string{"Student ID", "Student Name", "Status", "Score", "Total Points", "Percent", "Started At", "Finished At"}

// ExportExamResults renders every attempt of an exam as an xlsx sheet,
// one row per student.
func (s *exportService) ExportExamResults(ctx context.Context, examID uint, userID string) ([]byte, error) {
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
			return nil, NewPermissionError(userID, examID, "exam", "export results", "exam belongs to another teacher")
		}
	}

	attempts, _, err := s.repo.Attempt().GetByExam(ctx, nil, examID, repositories.AttemptFilters{
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	names := s.studentNames(ctx, attempts)

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range resultColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	for row, attempt := range attempts {
		values := []interface{}{
			attempt.StudentID,
			names[attempt.StudentID],
			string(attempt.Status),
			cellOrEmpty(attempt.Score),
			cellOrEmpty(attempt.TotalPoints),
			cellOrEmpty(attempt.PercentScore),
			timeOrEmpty(attempt.StartedAt),
			timeOrEmpty(attempt.FinishedAt),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("exam results exported", "exam_id", examID, "attempts", len(attempts), "exported_by", userID)
	return buf.Bytes(), nil
}

// studentNames resolves display names in one batch; lookup failures leave
// names blank rather than failing the export.
func (s *exportService) studentNames(ctx context.Context, attempts []*models.Attempt) map[string]string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range attempts {
		if !seen[a.StudentID] {
			seen[a.StudentID] = true
			ids = append(ids, a.StudentID)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve student names for export", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}

func cellOrEmpty(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func timeOrEmpty(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
