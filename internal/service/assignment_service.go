package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type assignmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListBySkill(ctx context.Context, skillID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type skillReader interface {
	FindByID(ctx context.Context, id string) (*models.Skill, error)
}

// CreateAssignmentRequest publishes a new assignment under a skill.
type CreateAssignmentRequest struct {
	SkillID      string                `json:"skill_id" validate:"required"`
	Title        string                `json:"title" validate:"required"`
	Description  string                `json:"description"`
	Instructions string                `json:"instructions"`
	DueDate      time.Time             `json:"due_date" validate:"required"`
	Attachments  models.AttachmentList `json:"attachments"`
}

// UpdateAssignmentRequest edits assignment metadata. Submissions keep their
// reference; only the metadata changes.
type UpdateAssignmentRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Instructions string                `json:"instructions"`
	DueDate      *time.Time            `json:"due_date"`
	Attachments  models.AttachmentList `json:"attachments"`
}

// AssignmentService manages the assignment catalogue.
type AssignmentService struct {
	assignments assignmentRepo
	skills      skillReader
	audits      auditWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(assignments assignmentRepo, skills skillReader, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, skills: skills, audits: audits, validator: validate, logger: logger}
}

// Create publishes a new assignment.
func (s *AssignmentService) Create(ctx context.Context, createdBy string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.skills.FindByID(ctx, req.SkillID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	assignment := &models.Assignment{
		SkillID:      req.SkillID,
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		DueDate:      req.DueDate,
		Attachments:  req.Attachments,
		CreatedBy:    createdBy,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// GetByID returns a single assignment.
func (s *AssignmentService) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListBySkill returns assignments under a skill, soonest due first.
func (s *AssignmentService) ListBySkill(ctx context.Context, skillID string) ([]models.Assignment, error) {
	if _, err := s.skills.FindByID(ctx, skillID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	assignments, err := s.assignments.ListBySkill(ctx, skillID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Update edits assignment metadata.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if req.Title != "" {
		assignment.Title = req.Title
	}
	if req.Description != "" {
		assignment.Description = req.Description
	}
	if req.Instructions != "" {
		assignment.Instructions = req.Instructions
	}
	if req.DueDate != nil {
		assignment.DueDate = *req.DueDate
	}
	if req.Attachments != nil {
		assignment.Attachments = req.Attachments
	}
	if err := s.assignments.Update(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment and, via the schema cascade, its submissions.
func (s *AssignmentService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	if s.audits != nil {
		entry := &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionAssignmentDelete,
			Resource:   "assignments",
			ResourceID: &id,
		}
		if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionAssignmentDelete), zap.Error(err))
		}
	}
	return nil
}
