package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	db := c.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).
		Preload("Subject").
		First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// GetPrerequisites is cached: the prerequisite graph changes only when a
// teacher edits a course.
func (c *CoursePostgreSQL) GetPrerequisites(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CoursePrerequisite, error) {
	db := c.getDB(tx)

	if tx != nil {
		return c.loadPrerequisites(ctx, db, courseID)
	}

	cacheKey := fmt.Sprintf("prereqs:%d", courseID)
	var prereqs []*models.CoursePrerequisite
	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &prereqs, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		return c.loadPrerequisites(ctx, db, courseID)
	})
	if err != nil {
		return nil, err
	}
	return prereqs, nil
}

func (c *CoursePostgreSQL) loadPrerequisites(ctx context.Context, db *gorm.DB, courseID uint) ([]*models.CoursePrerequisite, error) {
	var prereqs []*models.CoursePrerequisite
	if err := db.WithContext(ctx).
		Preload("Subject").
		Where("course_id = ?", courseID).
		Find(&prereqs).Error; err != nil {
		return nil, fmt.Errorf("failed to get prerequisites: %w", err)
	}
	return prereqs, nil
}

func (c *CoursePostgreSQL) GetCoursesBySubject(ctx context.Context, tx *gorm.DB, subjectID uint) ([]*models.Course, error) {
	db := c.getDB(tx)
	var courses []*models.Course
	if err := db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to get courses by subject: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) CountLessons(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	db := c.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (c *CoursePostgreSQL) CountCompletedLessons(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (int64, error) {
	db := c.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.CompletedLesson{}).
		Joins("JOIN lessons ON lessons.id = completed_lessons.lesson_id").
		Where("lessons.course_id = ? AND completed_lessons.student_id = ?", courseID, studentID).
		Count(&count).Error
	return count, err
}

func (c *CoursePostgreSQL) CreateEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (c *CoursePostgreSQL) IsEnrolled(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	db := c.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (c *CoursePostgreSQL) GetRoster(ctx context.Context, tx *gorm.DB, courseID uint) ([]string, error) {
	db := c.getDB(tx)
	var studentIDs []string
	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Order("student_id ASC").
		Pluck("student_id", &studentIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	return studentIDs, nil
}
