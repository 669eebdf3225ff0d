package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/dto"
	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type dashboardSubmissionRepo interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	ListUngraded(ctx context.Context, assignmentIDs []string, limit int) ([]models.Submission, error)
	CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int, error)
}

type dashboardAssignmentRepo interface {
	CountOpen(ctx context.Context, now time.Time) (int, error)
	ListDueBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Assignment, error)
	ListIDsByCreator(ctx context.Context, createdBy string) ([]string, error)
}

type dashboardChildRepo interface {
	CountByActive(ctx context.Context) (total, active int, err error)
	CountByGroup(ctx context.Context, groupIDs []string) (map[string]int, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Child, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	ListGroupsByTeacher(ctx context.Context, teacherID string) ([]models.Group, error)
}

type dashboardAttendanceRepo interface {
	SummaryForDate(ctx context.Context, date time.Time) (*models.AttendanceSummary, error)
	SummaryForChild(ctx context.Context, childID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type dashboardAnnouncementRepo interface {
	CountLive(ctx context.Context, now time.Time) (active, pinned int, err error)
}

type dashboardScheduleRepo interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlot, error)
}

// DashboardConfig tunes snapshot caching and the refresh poller.
type DashboardConfig struct {
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Submissions   dashboardSubmissionRepo
	Assignments   dashboardAssignmentRepo
	Children      dashboardChildRepo
	Attendance    dashboardAttendanceRepo
	Announcements dashboardAnnouncementRepo
	Schedules     dashboardScheduleRepo
	Cache         dashboardCache
	Logger        *zap.Logger
	Config        DashboardConfig
}

// DashboardService composes role-scoped dashboard snapshots. Snapshots are
// cached in Redis with a TTL; consumers that want live updates attach their
// own poller via Watch and cancel it with their context, so no subscriber
// state outlives the consumer.
type DashboardService struct {
	submissions   dashboardSubmissionRepo
	assignments   dashboardAssignmentRepo
	children      dashboardChildRepo
	attendance    dashboardAttendanceRepo
	announcements dashboardAnnouncementRepo
	schedules     dashboardScheduleRepo
	cache         dashboardCache
	logger        *zap.Logger
	now           func() time.Time
	cfg           DashboardConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		submissions:   params.Submissions,
		assignments:   params.Assignments,
		children:      params.Children,
		attendance:    params.Attendance,
		announcements: params.Announcements,
		schedules:     params.Schedules,
		cache:         params.Cache,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// Admin returns the admin dashboard and reports whether the cache served it.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	const cacheKey = "dashboard:admin"
	if s.cache != nil {
		var cached dto.AdminDashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		}
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	total, active, err := s.children.CountByActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count children")
	}
	groups, err := s.children.ListGroups(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	attendance, err := s.attendance.SummaryForDate(ctx, today)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	open, err := s.assignments.CountOpen(ctx, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	statusCounts, err := s.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	activeAnnouncements, pinned, err := s.announcements.CountLive(ctx, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count announcements")
	}

	var rate float64
	if attendance.Total > 0 {
		rate = float64(attendance.Present) / float64(attendance.Total) * 100
	}

	resp := &dto.AdminDashboardResponse{
		Children: dto.ChildrenSection{
			Total:    total,
			Active:   active,
			PerGroup: len(groups),
		},
		Attendance: dto.AttendanceSection{
			Date:        today.Format("2006-01-02"),
			Present:     attendance.Present,
			Absent:      attendance.Absent,
			OverallRate: rate,
		},
		Assignments: dto.AssignmentsSection{
			Open:          open,
			Ungraded:      statusCounts[models.SubmissionStatusSubmitted],
			GradedToday:   statusCounts[models.SubmissionStatusGraded],
			NeedsRevision: statusCounts[models.SubmissionStatusNeedsRevision],
		},
		Announcements: dto.AnnouncementsSection{
			Active: activeAnnouncements,
			Pinned: pinned,
		},
	}

	s.storeSnapshot(ctx, cacheKey, resp)
	return resp, false, nil
}

// Teacher returns a teacher's grading queue, today's slots and group sizes.
func (s *DashboardService) Teacher(ctx context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:teacher:%s", teacherID)
	if s.cache != nil {
		var cached dto.TeacherDashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		}
	}

	assignmentIDs, err := s.assignments.ListIDsByCreator(ctx, teacherID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher assignments")
	}
	ungraded, err := s.submissions.ListUngraded(ctx, assignmentIDs, 20)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ungraded submissions")
	}

	groups, err := s.children.ListGroupsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher groups")
	}
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	counts, err := s.children.CountByGroup(ctx, groupIDs)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group sizes")
	}

	// ISO weekday, Monday=1.
	weekday := int(s.now().UTC().Weekday())
	if weekday == 0 {
		weekday = 7
	}
	resp := &dto.TeacherDashboardResponse{TeacherID: teacherID}
	for _, sub := range ungraded {
		resp.Ungraded = append(resp.Ungraded, dto.UngradedItem{
			SubmissionID: sub.ID,
			AssignmentID: sub.AssignmentID,
			StudentID:    sub.StudentID,
			SubmittedAt:  sub.SubmittedAt.Format(time.RFC3339),
		})
	}
	for _, groupID := range groupIDs {
		resp.GroupCounts = append(resp.GroupCounts, dto.GroupCount{GroupID: groupID, Count: counts[groupID]})
		slots, err := s.schedules.List(ctx, models.ScheduleFilter{GroupID: groupID, DayOfWeek: &weekday})
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's schedule")
		}
		for _, slot := range slots {
			resp.TodaySlots = append(resp.TodaySlots, dto.ScheduleSlotBrief{
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Activity:  slot.Activity,
			})
		}
	}

	s.storeSnapshot(ctx, cacheKey, resp)
	return resp, false, nil
}

// Parent returns per-child progress for a parent's children.
func (s *DashboardService) Parent(ctx context.Context, parentID string) (*dto.ParentDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:parent:%s", parentID)
	if s.cache != nil {
		var cached dto.ParentDashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		}
	}

	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}

	now := s.now().UTC()
	monthAgo := now.AddDate(0, -1, 0)
	weekAhead := now.AddDate(0, 0, 7)

	resp := &dto.ParentDashboardResponse{ParentID: parentID}
	for _, child := range children {
		summary, err := s.attendance.SummaryForChild(ctx, child.ID, monthAgo, now)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
		}
		var rate float64
		if summary.Total > 0 {
			rate = float64(summary.Present) / float64(summary.Total) * 100
		}

		submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentID: child.ID, Status: models.SubmissionStatusGraded})
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list graded submissions")
		}
		if len(submissions) > 5 {
			submissions = submissions[:5]
		}

		due, err := s.assignments.ListDueBetween(ctx, now, weekAhead, 5)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due assignments")
		}

		progress := dto.ChildProgress{
			ChildID:        child.ID,
			AttendanceRate: rate,
			RecentGrades:   dto.NewSubmissionResponses(submissions),
		}
		for _, a := range due {
			progress.DueSoon = append(progress.DueSoon, dto.DueAssignment{
				AssignmentID: a.ID,
				Title:        a.Title,
				DueDate:      a.DueDate.Format("2006-01-02"),
			})
		}
		resp.Children = append(resp.Children, progress)
	}

	s.storeSnapshot(ctx, cacheKey, resp)
	return resp, false, nil
}

// DashboardSnapshot is one Watch emission.
type DashboardSnapshot struct {
	Payload interface{}
	Cached  bool
	At      time.Time
}

// Watch polls the role dashboard at the configured interval and sends
// snapshots until the consumer's context is cancelled. Each consumer owns its
// poller; cancelling the context is the only cleanup needed.
func (s *DashboardService) Watch(ctx context.Context, role models.UserRole, actorID string) (<-chan DashboardSnapshot, error) {
	fetch, err := s.fetcherFor(role, actorID)
	if err != nil {
		return nil, err
	}

	out := make(chan DashboardSnapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			payload, cached, err := fetch(ctx)
			if err != nil {
				s.logger.Warn("dashboard refresh failed", zap.String("role", string(role)), zap.Error(err))
			} else {
				select {
				case out <- DashboardSnapshot{Payload: payload, Cached: cached, At: s.now().UTC()}:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *DashboardService) fetcherFor(role models.UserRole, actorID string) (func(context.Context) (interface{}, bool, error), error) {
	switch role {
	case models.RoleAdmin:
		return func(ctx context.Context) (interface{}, bool, error) {
			resp, cached, err := s.Admin(ctx)
			return resp, cached, err
		}, nil
	case models.RoleTeacher:
		return func(ctx context.Context) (interface{}, bool, error) {
			resp, cached, err := s.Teacher(ctx, actorID)
			return resp, cached, err
		}, nil
	case models.RoleParent:
		return func(ctx context.Context) (interface{}, bool, error) {
			resp, cached, err := s.Parent(ctx, actorID)
			return resp, cached, err
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported dashboard role")
	}
}

func (s *DashboardService) storeSnapshot(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
