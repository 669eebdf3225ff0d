package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/dto"
	"github.com/seedlinghq/seedling-api/internal/grading"
	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type submissionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) error
	UpdateGrade(ctx context.Context, id string, grade, feedback *string, status models.SubmissionStatus, gradedBy string, gradedAt time.Time) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type childReader interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type dashboardInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SubmitRequest is the payload for submitting or resubmitting work.
type SubmitRequest struct {
	AssignmentID   string                `json:"assignment_id" validate:"required"`
	StudentID      string                `json:"student_id" validate:"required"`
	SubmissionText string                `json:"submission_text" validate:"required"`
	Attachments    models.AttachmentList `json:"attachments"`
}

// GradeRequest is the payload for grading a submission. Status defaults to
// graded; needs_revision and incomplete are returned without a grade.
type GradeRequest struct {
	Grade    string `json:"grade"`
	Feedback string `json:"feedback"`
	Status   string `json:"status" validate:"omitempty,oneof=graded needs_revision incomplete"`
}

// SubmissionService orchestrates the submission lifecycle: parent submit and
// resubmit, teacher grading, and listings.
type SubmissionService struct {
	submissions submissionRepo
	assignments assignmentReader
	children    childReader
	audits      auditWriter
	cache       dashboardInvalidator
	validator   *validator.Validate
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSubmissionService constructs SubmissionService. A nil cache skips
// dashboard snapshot invalidation.
func NewSubmissionService(submissions submissionRepo, assignments assignmentReader, children childReader, audits auditWriter, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		children:    children,
		audits:      audits,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

// Submit writes (or overwrites) the child's submission for an assignment.
// A resubmission resets the status to submitted and clears any earlier grade
// and feedback, so a graded status always implies a valid letter grade.
func (s *SubmissionService) Submit(ctx context.Context, actorID string, actorRole models.UserRole, req SubmitRequest) (*dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	if _, err := s.assignments.FindByID(ctx, req.AssignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	child, err := s.children.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if !child.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "child is not actively enrolled")
	}
	if actorRole == models.RoleParent && child.ParentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot submit for another parent's child")
	}

	submission := &models.Submission{
		AssignmentID:   req.AssignmentID,
		StudentID:      req.StudentID,
		SubmissionText: req.SubmissionText,
		Attachments:    req.Attachments,
		SubmittedAt:    time.Now().UTC(),
		Status:         models.SubmissionStatusSubmitted,
	}
	if err := s.submissions.Upsert(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}

	// On a resubmission the upsert keeps the original row id, so the audit
	// entry must reference the re-fetched row, not the input struct.
	stored, err := s.submissions.FindByAssignmentAndStudent(ctx, req.AssignmentID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	s.writeAudit(ctx, actorID, models.AuditActionSubmissionSubmit, stored.ID)
	s.invalidateDashboards(ctx)

	resp := dto.NewSubmissionResponse(*stored)
	return &resp, nil
}

// Grade records a teacher's decision on a submission. When the target status
// is graded the grade value must normalize to a letter; needs_revision and
// incomplete reject a grade value instead of silently discarding it.
func (s *SubmissionService) Grade(ctx context.Context, submissionID, gradedBy string, req GradeRequest) (*dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if !s.beginGrading(submissionID) {
		return nil, appErrors.ErrGradingInProgress
	}
	defer s.endGrading(submissionID)

	if _, err := s.submissions.FindByID(ctx, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	status := models.SubmissionStatus(req.Status)
	if status == "" {
		status = models.SubmissionStatusGraded
	}

	var grade *string
	switch status {
	case models.SubmissionStatusGraded:
		letter, ok := grading.Normalize(req.Grade)
		if !ok {
			return nil, appErrors.ErrInvalidGrade
		}
		value := string(letter)
		grade = &value
	case models.SubmissionStatusNeedsRevision, models.SubmissionStatusIncomplete:
		if req.Grade != "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a grade is only stored when the status is graded")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported grading status")
	}

	var feedback *string
	if req.Feedback != "" {
		feedback = &req.Feedback
	}

	gradedAt := time.Now().UTC()
	if err := s.submissions.UpdateGrade(ctx, submissionID, grade, feedback, status, gradedBy, gradedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	s.writeAudit(ctx, gradedBy, models.AuditActionSubmissionGrade, submissionID)
	s.invalidateDashboards(ctx)

	stored, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	resp := dto.NewSubmissionResponse(*stored)
	return &resp, nil
}

// GetByID returns a single submission.
func (s *SubmissionService) GetByID(ctx context.Context, id string) (*dto.SubmissionResponse, error) {
	submission, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	resp := dto.NewSubmissionResponse(*submission)
	return &resp, nil
}

// ListByAssignment returns all submissions for an assignment.
func (s *SubmissionService) ListByAssignment(ctx context.Context, assignmentID string) ([]dto.SubmissionResponse, error) {
	if _, err := s.assignments.FindByID(ctx, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{AssignmentID: assignmentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return dto.NewSubmissionResponses(submissions), nil
}

// ListByStudent returns a child's submissions. Parents may only view their
// own children.
func (s *SubmissionService) ListByStudent(ctx context.Context, actorID string, actorRole models.UserRole, studentID string) ([]dto.SubmissionResponse, error) {
	child, err := s.children.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if actorRole == models.RoleParent && child.ParentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another parent's child")
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return dto.NewSubmissionResponses(submissions), nil
}

func (s *SubmissionService) beginGrading(submissionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[submissionID]; busy {
		return false
	}
	s.inFlight[submissionID] = struct{}{}
	return true
}

func (s *SubmissionService) endGrading(submissionID string) {
	s.mu.Lock()
	delete(s.inFlight, submissionID)
	s.mu.Unlock()
}

// invalidateDashboards drops cached dashboard snapshots after a submission
// mutates, so counts and grading queues are not served stale for a full TTL.
func (s *SubmissionService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *SubmissionService) writeAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "submissions",
		ResourceID: &resourceID,
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
