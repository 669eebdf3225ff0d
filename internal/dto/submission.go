package dto

import (
	"time"

	"github.com/seedlinghq/seedling-api/internal/grading"
	"github.com/seedlinghq/seedling-api/internal/models"
)

// SubmissionResponse wraps a submission row with display-ready grade fields
// resolved once server-side so clients never coerce grades themselves.
type SubmissionResponse struct {
	ID             string                  `json:"id"`
	AssignmentID   string                  `json:"assignment_id"`
	StudentID      string                  `json:"student_id"`
	SubmissionText string                  `json:"submission_text"`
	Attachments    models.AttachmentList   `json:"attachments"`
	SubmittedAt    time.Time               `json:"submitted_at"`
	Status         models.SubmissionStatus `json:"status"`
	Grade          *string                 `json:"grade,omitempty"`
	GradeLetter    string                  `json:"grade_letter,omitempty"`
	GradeDisplay   string                  `json:"grade_display,omitempty"`
	GradeColor     string                  `json:"grade_color,omitempty"`
	Feedback       *string                 `json:"feedback,omitempty"`
	GradedBy       *string                 `json:"graded_by,omitempty"`
	GradedAt       *time.Time              `json:"graded_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewSubmissionResponse converts a submission row, parsing the stored grade
// value a single time.
func NewSubmissionResponse(s models.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:             s.ID,
		AssignmentID:   s.AssignmentID,
		StudentID:      s.StudentID,
		SubmissionText: s.SubmissionText,
		Attachments:    s.Attachments,
		SubmittedAt:    s.SubmittedAt,
		Status:         s.Status,
		Grade:          s.Grade,
		Feedback:       s.Feedback,
		GradedBy:       s.GradedBy,
		GradedAt:       s.GradedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Grade != nil {
		grade := grading.ParseGrade(*s.Grade)
		if letter, ok := grade.Letter(); ok {
			resp.GradeLetter = string(letter)
		}
		resp.GradeDisplay = grade.Display()
		resp.GradeColor = grading.ChipColor(*s.Grade)
	}
	return resp
}

// NewSubmissionResponses converts a slice of submission rows.
func NewSubmissionResponses(rows []models.Submission) []SubmissionResponse {
	result := make([]SubmissionResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, NewSubmissionResponse(row))
	}
	return result
}
