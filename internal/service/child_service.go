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

type childRepo interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
	List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Child, error)
	Create(ctx context.Context, child *models.Child) error
	Update(ctx context.Context, child *models.Child) error
	FindGroupByID(ctx context.Context, id string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UpsertChildRequest enrolls or edits a child.
type UpsertChildRequest struct {
	FullName  string  `json:"full_name" validate:"required"`
	BirthDate string  `json:"birth_date" validate:"required"`
	ParentID  string  `json:"parent_id" validate:"required"`
	GroupID   *string `json:"group_id"`
	Active    *bool   `json:"active"`
}

// CreateGroupRequest adds a classroom group.
type CreateGroupRequest struct {
	Name      string  `json:"name" validate:"required"`
	TeacherID *string `json:"teacher_id"`
}

// ChildService manages enrollment and classroom groups.
type ChildService struct {
	children  childRepo
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChildService constructs a ChildService.
func NewChildService(children childRepo, users userReader, validate *validator.Validate, logger *zap.Logger) *ChildService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChildService{children: children, users: users, validator: validate, logger: logger}
}

// List returns children with pagination metadata. Parents are scoped to
// their own children regardless of the filter.
func (s *ChildService) List(ctx context.Context, actorID string, actorRole models.UserRole, filter models.ChildFilter) ([]models.Child, *models.Pagination, error) {
	if actorRole == models.RoleParent {
		filter.ParentID = actorID
	}
	children, total, err := s.children.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return children, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetByID returns a single child. Parents may only view their own children.
func (s *ChildService) GetByID(ctx context.Context, actorID string, actorRole models.UserRole, id string) (*models.Child, error) {
	child, err := s.children.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if actorRole == models.RoleParent && child.ParentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another parent's child")
	}
	return child, nil
}

// Create enrolls a new child.
func (s *ChildService) Create(ctx context.Context, req UpsertChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}
	parent, err := s.users.FindByID(ctx, req.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent")
	}
	if parent.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "parent_id must reference a PARENT account")
	}
	if req.GroupID != nil {
		if _, err := s.children.FindGroupByID(ctx, *req.GroupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
		}
	}

	child := &models.Child{
		FullName:  req.FullName,
		BirthDate: birthDate,
		ParentID:  req.ParentID,
		GroupID:   req.GroupID,
		Active:    true,
	}
	if req.Active != nil {
		child.Active = *req.Active
	}
	if err := s.children.Create(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create child")
	}
	return child, nil
}

// Update edits a child's enrollment record.
func (s *ChildService) Update(ctx context.Context, id string, req UpsertChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	child, err := s.children.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must be YYYY-MM-DD")
	}
	if req.GroupID != nil {
		if _, err := s.children.FindGroupByID(ctx, *req.GroupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
		}
	}
	child.FullName = req.FullName
	child.BirthDate = birthDate
	child.ParentID = req.ParentID
	child.GroupID = req.GroupID
	if req.Active != nil {
		child.Active = *req.Active
	}
	if err := s.children.Update(ctx, child); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update child")
	}
	return child, nil
}

// ListGroups returns all classroom groups.
func (s *ChildService) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.children.ListGroups(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// CreateGroup adds a classroom group.
func (s *ChildService) CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if req.TeacherID != nil {
		teacher, err := s.users.FindByID(ctx, *req.TeacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if teacher.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id must reference a TEACHER account")
		}
	}
	group := &models.Group{Name: req.Name, TeacherID: req.TeacherID}
	if err := s.children.CreateGroup(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}
