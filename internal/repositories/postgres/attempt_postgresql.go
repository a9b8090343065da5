package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithExam(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Preload("Exam").
		Preload("Exam.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position ASC, questions.id ASC")
		}).
		Preload("Exam.Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.position ASC, answers.id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("created_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Save(attempt).Error
}

// Complete writes the terminal state in one UPDATE so the status flip and the
// score always land together.
func (a *AttemptPostgreSQL) Complete(ctx context.Context, tx *gorm.DB, id uint, finishedAt time.Time, score, totalPoints, percentScore int) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":        models.AttemptFinished,
			"finished_at":   finishedAt,
			"score":         score,
			"total_points":  totalPoints,
			"percent_score": percentScore,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	var total int64

	query := db.WithContext(ctx).Model(&models.Attempt{})
	query = applyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	filters.ExamID = &examID
	return a.List(ctx, tx, filters)
}

// GetStats aggregates per-exam attempt counts; cached as it backs teacher views.
func (a *AttemptPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.AttemptStats, error) {
	db := a.getDB(tx)
	cacheKey := fmt.Sprintf("attempts:exam:%d", examID)

	var stats repositories.AttemptStats
	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.AttemptStats

		rows := []struct {
			Status models.AttemptStatus
			Count  int64
		}{}
		if err := db.WithContext(ctx).
			Model(&models.Attempt{}).
			Select("status, COUNT(*) as count").
			Where("exam_id = ?", examID).
			Group("status").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate attempt stats: %w", err)
		}

		for _, row := range rows {
			result.Total += row.Count
			switch row.Status {
			case models.AttemptNotStarted:
				result.NotStarted = row.Count
			case models.AttemptInProgress:
				result.InProgress = row.Count
			case models.AttemptFinished:
				result.Finished = row.Count
			}
		}

		if result.Finished > 0 {
			var avg float64
			if err := db.WithContext(ctx).
				Model(&models.Attempt{}).
				Select("AVG(percent_score)").
				Where("exam_id = ? AND status = ?", examID, models.AttemptFinished).
				Scan(&avg).Error; err != nil {
				return nil, fmt.Errorf("failed to average percent score: %w", err)
			}
			result.AveragePercent = &avg
		}

		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
