package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// Sentinel errors returned by the service layer. Handlers map them to HTTP
// status codes; everything unrecognized becomes a 500.
var (
	// Attempt lifecycle
	ErrAttemptNotFound        = errors.New("attempt not found")
	ErrAttemptAlreadyStarted  = errors.New("attempt already started")
	ErrAttemptAlreadyFinished = errors.New("attempt already finished")
	ErrAttemptNotStarted      = errors.New("attempt not started")

	// Answer recording
	ErrQuestionNotInExam   = errors.New("question does not belong to the attempt's exam")
	ErrAnswerNotInQuestion = errors.New("answer does not belong to the question")

	// Exams
	ErrExamNotFound       = errors.New("exam not found")
	ErrExamNotActive      = errors.New("exam is not active")
	ErrExamHasNoQuestions = errors.New("exam has no questions")

	// Courses and enrollment
	ErrCourseNotFound      = errors.New("course not found")
	ErrAlreadyEnrolled     = errors.New("student already enrolled")
	ErrPrerequisitesNotMet = errors.New("course prerequisites not met")

	// Assignments
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// Generic
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrUserNotFound = errors.New("user not found")
)

// ValidationErrors re-exports the validator error shape so callers only
// depend on the services package.
type ValidationErrors = validator.ValidationErrors

// PermissionError carries the denial context for audit logging
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError reports a domain rule violation that is not a simple
// field validation failure.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}
