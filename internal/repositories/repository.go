package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates all sub-repositories behind a single handle so the
// service layer can receive one dependency and run cross-repo transactions.
type Repository interface {
	Exam() ExamRepository
	Attempt() AttemptRepository
	Selection() SelectionRepository
	Course() CourseRepository
	Assignment() AssignmentRepository
	User() UserRepository

	// WithTransaction runs fn with a repository bound to one transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
	// WithSerializableTransaction is the same under SERIALIZABLE isolation.
	// Attempt finishing uses it so concurrent finishes serialize.
	WithSerializableTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err is the driver's missing-row error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
