package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type skillRepo interface {
	FindByID(ctx context.Context, id string) (*models.Skill, error)
	List(ctx context.Context, filter models.SkillFilter) ([]models.Skill, int, error)
	Create(ctx context.Context, skill *models.Skill) error
	Update(ctx context.Context, skill *models.Skill) error
	Delete(ctx context.Context, id string) error
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
	ListLessons(ctx context.Context, skillID string) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, id string) error
}

// UpsertSkillRequest is the payload for creating or editing a skill.
type UpsertSkillRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	AgeBand     *string `json:"age_band"`
}

// UpsertLessonRequest is the payload for creating or editing a lesson.
type UpsertLessonRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content"`
	Position int    `json:"position" validate:"omitempty,min=1"`
}

// SkillService manages the skills catalogue and the lessons nested under it.
type SkillService struct {
	repo      skillRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSkillService constructs a SkillService.
func NewSkillService(repo skillRepo, validate *validator.Validate, logger *zap.Logger) *SkillService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillService{repo: repo, validator: validate, logger: logger}
}

// List returns skills with pagination metadata.
func (s *SkillService) List(ctx context.Context, filter models.SkillFilter) ([]models.Skill, *models.Pagination, error) {
	skills, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list skills")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return skills, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetByID returns a single skill.
func (s *SkillService) GetByID(ctx context.Context, id string) (*models.Skill, error) {
	skill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	return skill, nil
}

// Create adds a new skill.
func (s *SkillService) Create(ctx context.Context, createdBy string, req UpsertSkillRequest) (*models.Skill, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid skill payload")
	}
	skill := &models.Skill{
		Name:        req.Name,
		Description: req.Description,
		AgeBand:     req.AgeBand,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, skill); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create skill")
	}
	return skill, nil
}

// Update edits a skill.
func (s *SkillService) Update(ctx context.Context, id string, req UpsertSkillRequest) (*models.Skill, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid skill payload")
	}
	skill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	skill.Name = req.Name
	skill.Description = req.Description
	skill.AgeBand = req.AgeBand
	if err := s.repo.Update(ctx, skill); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update skill")
	}
	return skill, nil
}

// Delete removes a skill and cascades to its lessons and assignments.
func (s *SkillService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete skill")
	}
	return nil
}

// ListLessons returns lessons for a skill ordered by position.
func (s *SkillService) ListLessons(ctx context.Context, skillID string) ([]models.Lesson, error) {
	if _, err := s.repo.FindByID(ctx, skillID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	lessons, err := s.repo.ListLessons(ctx, skillID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// CreateLesson appends a lesson to a skill.
func (s *SkillService) CreateLesson(ctx context.Context, skillID, createdBy string, req UpsertLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if _, err := s.repo.FindByID(ctx, skillID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load skill")
	}
	lesson := &models.Lesson{
		SkillID:   skillID,
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// UpdateLesson edits a lesson.
func (s *SkillService) UpdateLesson(ctx context.Context, id string, req UpsertLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson, err := s.repo.FindLessonByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	lesson.Title = req.Title
	lesson.Content = req.Content
	if req.Position > 0 {
		lesson.Position = req.Position
	}
	if err := s.repo.UpdateLesson(ctx, lesson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// DeleteLesson removes a lesson.
func (s *SkillService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.repo.DeleteLesson(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}
