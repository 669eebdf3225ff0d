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

type announcementRepo interface {
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	ListVisible(ctx context.Context, filter models.AnnouncementFilter, now time.Time) ([]models.Announcement, int, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type childGroupsReader interface {
	ListByParent(ctx context.Context, parentID string) ([]models.Child, error)
	ListGroupsByTeacher(ctx context.Context, teacherID string) ([]models.Group, error)
}

// UpsertAnnouncementRequest creates or edits an announcement.
type UpsertAnnouncementRequest struct {
	Title         string     `json:"title" validate:"required"`
	Content       string     `json:"content" validate:"required"`
	Audience      string     `json:"audience" validate:"required,oneof=ALL TEACHER PARENT GROUP"`
	TargetGroupID *string    `json:"target_group_id"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	IsPinned      bool       `json:"is_pinned"`
	PublishedAt   *time.Time `json:"published_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// AnnouncementService manages targeted announcements.
type AnnouncementService struct {
	announcements announcementRepo
	children      childGroupsReader
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(announcements announcementRepo, children childGroupsReader, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{announcements: announcements, children: children, validator: validate, logger: logger}
}

// ListForUser returns live announcements visible to the actor: role-targeted
// ones plus group-targeted ones for the actor's groups (a teacher's assigned
// groups, a parent's children's groups).
func (s *AnnouncementService) ListForUser(ctx context.Context, actorID string, actorRole models.UserRole, page, pageSize int) ([]models.Announcement, *models.Pagination, error) {
	filter := models.AnnouncementFilter{Page: page, PageSize: pageSize}

	switch actorRole {
	case models.RoleAdmin:
		filter.AudienceRoles = []models.UserRole{models.RoleTeacher, models.RoleParent}
	case models.RoleTeacher:
		filter.AudienceRoles = []models.UserRole{models.RoleTeacher}
		groups, err := s.children.ListGroupsByTeacher(ctx, actorID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher groups")
		}
		for _, g := range groups {
			filter.GroupIDs = append(filter.GroupIDs, g.ID)
		}
	case models.RoleParent:
		filter.AudienceRoles = []models.UserRole{models.RoleParent}
		children, err := s.children.ListByParent(ctx, actorID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load children")
		}
		seen := make(map[string]bool)
		for _, c := range children {
			if c.GroupID != nil && !seen[*c.GroupID] {
				seen[*c.GroupID] = true
				filter.GroupIDs = append(filter.GroupIDs, *c.GroupID)
			}
		}
	}

	announcements, total, err := s.announcements.ListVisible(ctx, filter, time.Now().UTC())
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return announcements, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, createdBy string, req UpsertAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validateAnnouncement(req); err != nil {
		return nil, err
	}
	announcement := &models.Announcement{
		Title:         req.Title,
		Content:       req.Content,
		Audience:      models.AnnouncementAudience(req.Audience),
		TargetGroupID: req.TargetGroupID,
		Priority:      models.AnnouncementPriorityNormal,
		IsPinned:      req.IsPinned,
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     createdBy,
	}
	if req.Priority != "" {
		announcement.Priority = models.AnnouncementPriority(req.Priority)
	}
	if req.PublishedAt != nil {
		announcement.PublishedAt = *req.PublishedAt
	}
	if err := s.announcements.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// Update edits an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpsertAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validateAnnouncement(req); err != nil {
		return nil, err
	}
	announcement, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	announcement.Title = req.Title
	announcement.Content = req.Content
	announcement.Audience = models.AnnouncementAudience(req.Audience)
	announcement.TargetGroupID = req.TargetGroupID
	if req.Priority != "" {
		announcement.Priority = models.AnnouncementPriority(req.Priority)
	}
	announcement.IsPinned = req.IsPinned
	if req.PublishedAt != nil {
		announcement.PublishedAt = *req.PublishedAt
	}
	announcement.ExpiresAt = req.ExpiresAt
	if err := s.announcements.Update(ctx, announcement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.announcements.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) validateAnnouncement(req UpsertAnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if req.Audience == string(models.AnnouncementAudienceGroup) && req.TargetGroupID == nil {
		return appErrors.Clone(appErrors.ErrValidation, "target_group_id is required for GROUP audience")
	}
	if req.ExpiresAt != nil && req.PublishedAt != nil && !req.ExpiresAt.After(*req.PublishedAt) {
		return appErrors.Clone(appErrors.ErrValidation, "expires_at must be after published_at")
	}
	return nil
}
