package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by this service. Consumers (notification pipeline,
// gradebook sync) subscribe by type; delivery is best effort.
const (
	AttemptFinished   = "attempt.finished"
	SubmissionLinked  = "submission.linked"
	AssignmentIssued  = "assignment.issued"
	EnrollmentCreated = "enrollment.created"
)

const (
	eventSource  = "exam-service"
	eventVersion = "1.0"
)

// Event is the envelope published to the message broker
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with generated id and current timestamp
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events. Implementations must be safe for
// concurrent use; publishing failures are logged by callers, never propagated
// to the student-facing request.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AttemptFinishedData is the payload for attempt.finished
type AttemptFinishedData struct {
	AttemptID    uint   `json:"attempt_id"`
	ExamID       uint   `json:"exam_id"`
	StudentID    string `json:"student_id"`
	Score        int    `json:"score"`
	TotalPoints  int    `json:"total_points"`
	PercentScore int    `json:"percent_score"`
}

// SubmissionLinkedData is the payload for submission.linked
type SubmissionLinkedData struct {
	AssignmentID uint   `json:"assignment_id"`
	StudentID    string `json:"student_id"`
	AttemptID    uint   `json:"attempt_id"`
}

// AssignmentIssuedData is the payload for assignment.issued
type AssignmentIssuedData struct {
	AssignmentID uint     `json:"assignment_id"`
	CourseID     uint     `json:"course_id"`
	ExamID       *uint    `json:"exam_id,omitempty"`
	StudentIDs   []string `json:"student_ids"`
}

// EnrollmentCreatedData is the payload for enrollment.created
type EnrollmentCreatedData struct {
	CourseID  uint   `json:"course_id"`
	StudentID string `json:"student_id"`
}
