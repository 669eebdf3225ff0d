package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type scheduleRepo interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlot, error)
	ListOverlapping(ctx context.Context, groupID string, dayOfWeek int, startTime, endTime string) ([]models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	Delete(ctx context.Context, id string) error
}

type groupReader interface {
	FindGroupByID(ctx context.Context, id string) (*models.Group, error)
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// UpsertScheduleSlotRequest creates or edits a weekly schedule slot.
type UpsertScheduleSlotRequest struct {
	GroupID   string `json:"group_id" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"min=1,max=7"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Activity  string `json:"activity" validate:"required"`
	Location  string `json:"location"`
}

// ScheduleService manages the recurring weekly schedule per group.
type ScheduleService struct {
	schedules scheduleRepo
	groups    groupReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedules scheduleRepo, groups groupReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{schedules: schedules, groups: groups, validator: validate, logger: logger}
}

// List returns schedule slots for the filter.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlot, error) {
	slots, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return slots, nil
}

// Create adds a slot after checking the group exists and the window does not
// overlap an existing slot for the same group and day.
func (s *ScheduleService) Create(ctx context.Context, req UpsertScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validateSlot(req); err != nil {
		return nil, err
	}
	if _, err := s.groups.FindGroupByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	overlapping, err := s.schedules.ListOverlapping(ctx, req.GroupID, req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	if len(overlapping) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot overlaps an existing activity")
	}

	slot := &models.ScheduleSlot{
		GroupID:   req.GroupID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Activity:  req.Activity,
		Location:  req.Location,
	}
	if err := s.schedules.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
	}
	return slot, nil
}

// Update edits a slot, re-running the overlap check against other slots.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpsertScheduleSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validateSlot(req); err != nil {
		return nil, err
	}
	slot, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}
	overlapping, err := s.schedules.ListOverlapping(ctx, slot.GroupID, req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	for _, other := range overlapping {
		if other.ID != slot.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "slot overlaps an existing activity")
		}
	}
	slot.DayOfWeek = req.DayOfWeek
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.Activity = req.Activity
	slot.Location = req.Location
	if err := s.schedules.Update(ctx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule slot")
	}
	return slot, nil
}

// Delete removes a slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule slot")
	}
	return nil
}

func (s *ScheduleService) validateSlot(req UpsertScheduleSlotRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !timeOfDayPattern.MatchString(req.StartTime) || !timeOfDayPattern.MatchString(req.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must be HH:MM in 24-hour format")
	}
	if req.StartTime >= req.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return nil
}
