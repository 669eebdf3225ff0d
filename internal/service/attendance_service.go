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

type attendanceRepo interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	SummaryForChild(ctx context.Context, childID string, from, to time.Time) (*models.AttendanceSummary, error)
	SummaryForDate(ctx context.Context, date time.Time) (*models.AttendanceSummary, error)
}

// MarkAttendanceRequest marks one child's attendance for a day. Marking the
// same (child, date) again overwrites the earlier status.
type MarkAttendanceRequest struct {
	ChildID string `json:"child_id" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=PRESENT ABSENT SICK EXCUSED"`
	Note    string `json:"note"`
}

// AttendanceService manages daily attendance.
type AttendanceService struct {
	attendance attendanceRepo
	children   childReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendance attendanceRepo, children childReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, children: children, validator: validate, logger: logger}
}

// Mark records (or overwrites) a child's attendance for a day.
func (s *AttendanceService) Mark(ctx context.Context, recordedBy string, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	child, err := s.children.FindByID(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if !child.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "child is not actively enrolled")
	}

	record := &models.AttendanceRecord{
		ChildID:    req.ChildID,
		Date:       date,
		Status:     models.AttendanceStatus(req.Status),
		Note:       req.Note,
		RecordedBy: recordedBy,
	}
	if err := s.attendance.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return record, nil
}

// List returns attendance records. Parents are restricted to their own
// children via an explicit child filter.
func (s *AttendanceService) List(ctx context.Context, actorID string, actorRole models.UserRole, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if actorRole == models.RoleParent {
		if filter.ChildID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "child_id is required")
		}
		child, err := s.children.FindByID(ctx, filter.ChildID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
		}
		if child.ParentID != actorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another parent's child")
		}
	}
	records, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Summary aggregates a child's attendance over a date range.
func (s *AttendanceService) Summary(ctx context.Context, actorID string, actorRole models.UserRole, childID string, from, to time.Time) (*models.AttendanceSummary, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if actorRole == models.RoleParent && child.ParentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another parent's child")
	}
	summary, err := s.attendance.SummaryForChild(ctx, childID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return summary, nil
}
