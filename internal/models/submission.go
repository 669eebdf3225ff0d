package models

import "time"

// SubmissionStatus tracks the lifecycle of a submission. A missing row means
// the assignment is unsubmitted for that child.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted     SubmissionStatus = "submitted"
	SubmissionStatusGraded        SubmissionStatus = "graded"
	SubmissionStatusNeedsRevision SubmissionStatus = "needs_revision"
	SubmissionStatusIncomplete    SubmissionStatus = "incomplete"
)

// Valid returns true when the status is a supported value.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusGraded, SubmissionStatusNeedsRevision, SubmissionStatusIncomplete:
		return true
	default:
		return false
	}
}

// Submission is a child's (parent-submitted) response to an assignment.
// There is exactly one row per (assignment, student); resubmission
// overwrites it rather than appending history.
type Submission struct {
	ID             string           `db:"id" json:"id"`
	AssignmentID   string           `db:"assignment_id" json:"assignment_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SubmissionText string           `db:"submission_text" json:"submission_text"`
	Attachments    AttachmentList   `db:"attachments" json:"attachments"`
	SubmittedAt    time.Time        `db:"submitted_at" json:"submitted_at"`
	Status         SubmissionStatus `db:"status" json:"status"`
	Grade          *string          `db:"grade" json:"grade,omitempty"`
	Feedback       *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy       *string          `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt       *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter scopes submission listings.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	Status       SubmissionStatus
}
