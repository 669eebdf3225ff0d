package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlinghq/seedling-api/internal/dto"
	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	gets    int
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.sets++
	return nil
}

type stubDashboardSubmissions struct {
	statusCounts map[models.SubmissionStatus]int
	ungraded     []models.Submission
	graded       []models.Submission
}

func (s *stubDashboardSubmissions) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	return s.graded, nil
}

func (s *stubDashboardSubmissions) ListUngraded(ctx context.Context, assignmentIDs []string, limit int) ([]models.Submission, error) {
	return s.ungraded, nil
}

func (s *stubDashboardSubmissions) CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int, error) {
	return s.statusCounts, nil
}

type stubDashboardAssignments struct {
	open    int
	due     []models.Assignment
	created []string
}

func (s *stubDashboardAssignments) CountOpen(ctx context.Context, now time.Time) (int, error) {
	return s.open, nil
}

func (s *stubDashboardAssignments) ListDueBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Assignment, error) {
	return s.due, nil
}

func (s *stubDashboardAssignments) ListIDsByCreator(ctx context.Context, createdBy string) ([]string, error) {
	return s.created, nil
}

type stubDashboardChildren struct {
	total    int
	active   int
	byParent []models.Child
	groups   []models.Group
}

func (s *stubDashboardChildren) CountByActive(ctx context.Context) (int, int, error) {
	return s.total, s.active, nil
}

func (s *stubDashboardChildren) CountByGroup(ctx context.Context, groupIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(groupIDs))
	for _, id := range groupIDs {
		counts[id] = 8
	}
	return counts, nil
}

func (s *stubDashboardChildren) ListByParent(ctx context.Context, parentID string) ([]models.Child, error) {
	return s.byParent, nil
}

func (s *stubDashboardChildren) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groups, nil
}

func (s *stubDashboardChildren) ListGroupsByTeacher(ctx context.Context, teacherID string) ([]models.Group, error) {
	return s.groups, nil
}

type stubDashboardAttendance struct {
	summary models.AttendanceSummary
}

func (s *stubDashboardAttendance) SummaryForDate(ctx context.Context, date time.Time) (*models.AttendanceSummary, error) {
	copy := s.summary
	return &copy, nil
}

func (s *stubDashboardAttendance) SummaryForChild(ctx context.Context, childID string, from, to time.Time) (*models.AttendanceSummary, error) {
	copy := s.summary
	copy.ChildID = childID
	return &copy, nil
}

type stubDashboardAnnouncements struct {
	active int
	pinned int
}

func (s *stubDashboardAnnouncements) CountLive(ctx context.Context, now time.Time) (int, int, error) {
	return s.active, s.pinned, nil
}

type stubDashboardSchedules struct {
	slots []models.ScheduleSlot
}

func (s *stubDashboardSchedules) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlot, error) {
	return s.slots, nil
}

func newDashboardFixture(cache dashboardCache) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Submissions: &stubDashboardSubmissions{
			statusCounts: map[models.SubmissionStatus]int{
				models.SubmissionStatusSubmitted:     4,
				models.SubmissionStatusGraded:        9,
				models.SubmissionStatusNeedsRevision: 2,
			},
			ungraded: []models.Submission{
				{ID: "sub-1", AssignmentID: "asg-1", StudentID: "child-1", SubmittedAt: time.Now().UTC()},
			},
		},
		Assignments: &stubDashboardAssignments{
			open:    3,
			created: []string{"asg-1"},
			due: []models.Assignment{
				{ID: "asg-2", Title: "Counting to ten", DueDate: time.Now().Add(48 * time.Hour)},
			},
		},
		Children: &stubDashboardChildren{
			total:    30,
			active:   28,
			byParent: []models.Child{{ID: "child-1", ParentID: "parent-1"}},
			groups:   []models.Group{{ID: "group-1", Name: "Sunflowers"}},
		},
		Attendance:    &stubDashboardAttendance{summary: models.AttendanceSummary{Present: 24, Absent: 4, Total: 28}},
		Announcements: &stubDashboardAnnouncements{active: 5, pinned: 1},
		Schedules: &stubDashboardSchedules{slots: []models.ScheduleSlot{
			{GroupID: "group-1", StartTime: "09:00", EndTime: "09:45", Activity: "Circle time"},
		}},
		Cache:  cache,
		Config: DashboardConfig{CacheTTL: time.Minute, RefreshInterval: 10 * time.Millisecond},
	})
}

func TestAdminDashboardCacheMissThenHit(t *testing.T) {
	cache := &memoryCache{}
	svc := newDashboardFixture(cache)

	resp, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 30, resp.Children.Total)
	assert.Equal(t, 4, resp.Assignments.Ungraded)
	assert.InDelta(t, 85.71, resp.Attendance.OverallRate, 0.01)
	assert.Equal(t, 1, cache.sets)

	again, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, resp.Children, again.Children)
	assert.Equal(t, 1, cache.sets)
}

func TestTeacherDashboardSections(t *testing.T) {
	svc := newDashboardFixture(nil)

	resp, cached, err := svc.Teacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Ungraded, 1)
	assert.Equal(t, "sub-1", resp.Ungraded[0].SubmissionID)
	require.Len(t, resp.GroupCounts, 1)
	assert.Equal(t, dto.GroupCount{GroupID: "group-1", Count: 8}, resp.GroupCounts[0])
	require.Len(t, resp.TodaySlots, 1)
	assert.Equal(t, "Circle time", resp.TodaySlots[0].Activity)
}

func TestParentDashboardPerChild(t *testing.T) {
	svc := newDashboardFixture(nil)

	resp, cached, err := svc.Parent(context.Background(), "parent-1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Children, 1)
	child := resp.Children[0]
	assert.Equal(t, "child-1", child.ChildID)
	assert.InDelta(t, 85.71, child.AttendanceRate, 0.01)
	require.Len(t, child.DueSoon, 1)
	assert.Equal(t, "asg-2", child.DueSoon[0].AssignmentID)
}

func TestDashboardWatchStopsOnCancel(t *testing.T) {
	svc := newDashboardFixture(&memoryCache{})

	ctx, cancel := context.WithCancel(context.Background())
	snapshots, err := svc.Watch(ctx, models.RoleAdmin, "")
	require.NoError(t, err)

	select {
	case snap := <-snapshots:
		require.NotNil(t, snap.Payload)
		_, ok := snap.Payload.(*dto.AdminDashboardResponse)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot before timeout")
	}

	cancel()
	select {
	case _, open := <-snapshots:
		for open {
			_, open = <-snapshots
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel to close after cancel")
	}
}

func TestDashboardWatchRejectsUnknownRole(t *testing.T) {
	svc := newDashboardFixture(nil)

	_, err := svc.Watch(context.Background(), models.UserRole("VISITOR"), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
