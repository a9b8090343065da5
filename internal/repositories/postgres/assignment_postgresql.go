package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Assignment, error) {
	db := a.getDB(tx)
	var assignments []*models.Assignment
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND type = ?", examID, models.AssignmentExam).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to get assignments by exam: %w", err)
	}
	return assignments, nil
}

// UpsertSubmission writes against the (assignment, student) unique index so a
// pre-created empty row and a later submission never conflict.
func (a *AssignmentPostgreSQL) UpsertSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	db := a.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"attempt_id", "file_url", "submitted_at", "updated_at"}),
		}).
		Create(submission).Error
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

func (a *AssignmentPostgreSQL) GetSubmission(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.AssignmentSubmission, error) {
	db := a.getDB(tx)
	var submission models.AssignmentSubmission
	if err := db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (a *AssignmentPostgreSQL) GetSubmissionByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentSubmission, error) {
	db := a.getDB(tx)
	var submission models.AssignmentSubmission
	if err := db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (a *AssignmentPostgreSQL) ListSubmissions(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.AssignmentSubmission, error) {
	db := a.getDB(tx)
	var submissions []*models.AssignmentSubmission
	if err := db.WithContext(ctx).
		Preload("Attempt").
		Where("assignment_id = ?", assignmentID).
		Order("student_id ASC").
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

func (a *AssignmentPostgreSQL) UpdateSubmission(ctx context.Context, tx *gorm.DB, submission *models.AssignmentSubmission) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(submission).Error; err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}
