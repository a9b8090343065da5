package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// SelectionPostgreSQL stores per-attempt answer picks and review marks.
// No cache layer here: selections are written far more often than read.
type SelectionPostgreSQL struct {
	db *gorm.DB
}

func NewSelectionPostgreSQL(db *gorm.DB) repositories.SelectionRepository {
	return &SelectionPostgreSQL{db: db}
}

func (s *SelectionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SelectionPostgreSQL) BulkCreate(ctx context.Context, tx *gorm.DB, selections []models.AnswerSelection) error {
	if len(selections) == 0 {
		return nil
	}
	db := s.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(selections, 200).Error; err != nil {
		return fmt.Errorf("failed to create selections: %w", err)
	}
	return nil
}

func (s *SelectionPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AnswerSelection, error) {
	db := s.getDB(tx)
	var selections []*models.AnswerSelection
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC, answer_id ASC").
		Find(&selections).Error; err != nil {
		return nil, fmt.Errorf("failed to get selections: %w", err)
	}
	return selections, nil
}

func (s *SelectionPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) ([]*models.AnswerSelection, error) {
	db := s.getDB(tx)
	var selections []*models.AnswerSelection
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Order("answer_id ASC").
		Find(&selections).Error; err != nil {
		return nil, fmt.Errorf("failed to get question selections: %w", err)
	}
	return selections, nil
}

// Upsert relies on the unique (attempt, question, answer) index so concurrent
// saves of the same pick collapse into the last write.
func (s *SelectionPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, selection *models.AnswerSelection) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}, {Name: "answer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selected", "updated_at"}),
		}).
		Create(selection).Error
	if err != nil {
		return fmt.Errorf("failed to upsert selection: %w", err)
	}
	return nil
}

func (s *SelectionPostgreSQL) DeleteForQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Delete(&models.AnswerSelection{}).Error; err != nil {
		return fmt.Errorf("failed to clear question selections: %w", err)
	}
	return nil
}

func (s *SelectionPostgreSQL) SetReviewMark(ctx context.Context, tx *gorm.DB, mark *models.ReviewMark) error {
	db := s.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"marked", "updated_at"}),
		}).
		Create(mark).Error
	if err != nil {
		return fmt.Errorf("failed to set review mark: %w", err)
	}
	return nil
}

func (s *SelectionPostgreSQL) GetReviewMarks(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.ReviewMark, error) {
	db := s.getDB(tx)
	var marks []*models.ReviewMark
	if err := db.WithContext(ctx).
		Where("attempt_id = ? AND marked = ?", attemptID, true).
		Order("question_id ASC").
		Find(&marks).Error; err != nil {
		return nil, fmt.Errorf("failed to get review marks: %w", err)
	}
	return marks, nil
}
