package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type mockSubmissionRepo struct {
	mu          sync.Mutex
	stored      map[string]models.Submission
	gradeDelay  time.Duration
	gradeCalls  int
	upsertCalls int
}

func (m *mockSubmissionRepo) key(assignmentID, studentID string) string {
	return assignmentID + "/" + studentID
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stored {
		if s.ID == id {
			copy := s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stored[m.key(assignmentID, studentID)]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Submission
	for _, s := range m.stored {
		if filter.AssignmentID != "" && s.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// Upsert matches the SQL repository: the input struct always receives a
// fresh id, while a conflicting row keeps the id it was created with.
func (m *mockSubmissionRepo) Upsert(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.stored == nil {
		m.stored = make(map[string]models.Submission)
	}
	submission.ID = fmt.Sprintf("fresh-%d", m.upsertCalls)
	key := m.key(submission.AssignmentID, submission.StudentID)
	row := *submission
	if existing, ok := m.stored[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}
	row.Grade = nil
	row.Feedback = nil
	row.GradedBy = nil
	row.GradedAt = nil
	m.stored[key] = row
	return nil
}

func (m *mockSubmissionRepo) UpdateGrade(ctx context.Context, id string, grade, feedback *string, status models.SubmissionStatus, gradedBy string, gradedAt time.Time) error {
	if m.gradeDelay > 0 {
		time.Sleep(m.gradeDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gradeCalls++
	for key, s := range m.stored {
		if s.ID == id {
			s.Grade = grade
			s.Feedback = feedback
			s.Status = status
			s.GradedBy = &gradedBy
			s.GradedAt = &gradedAt
			m.stored[key] = s
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockAssignmentReader struct {
	assignments map[string]models.Assignment
}

func (m *mockAssignmentReader) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		copy := a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type mockChildReader struct {
	children map[string]models.Child
}

func (m *mockChildReader) FindByID(ctx context.Context, id string) (*models.Child, error) {
	if c, ok := m.children[id]; ok {
		copy := c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditWriter struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *log)
	return nil
}

func newSubmissionFixture() (*SubmissionService, *mockSubmissionRepo, *mockAuditWriter) {
	submissions := &mockSubmissionRepo{}
	assignments := &mockAssignmentReader{assignments: map[string]models.Assignment{
		"asg-1": {ID: "asg-1", SkillID: "skill-1", Title: "Shape sorting", DueDate: time.Now().Add(48 * time.Hour)},
	}}
	children := &mockChildReader{children: map[string]models.Child{
		"child-1": {ID: "child-1", FullName: "Mia", ParentID: "parent-1", Active: true},
		"child-2": {ID: "child-2", FullName: "Leo", ParentID: "parent-2", Active: true},
		"child-3": {ID: "child-3", FullName: "Zoe", ParentID: "parent-1", Active: false},
	}}
	audits := &mockAuditWriter{}
	svc := NewSubmissionService(submissions, assignments, children, audits, nil, nil, nil)
	return svc, submissions, audits
}

func TestSubmitCreatesSubmission(t *testing.T) {
	svc, _, audits := newSubmissionFixture()

	resp, err := svc.Submit(context.Background(), "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "we sorted all the triangles",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, resp.Status)
	assert.Nil(t, resp.Grade)
	assert.Len(t, audits.entries, 1)
	assert.Equal(t, models.AuditActionSubmissionSubmit, audits.entries[0].Action)
}

func TestSubmitRejectsForeignChild(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-2",
		SubmissionText: "not mine",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsInactiveChild(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Submit(context.Background(), "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-3",
		SubmissionText: "late work",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestResubmitClearsGradeAndResetsStatus(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "first try",
	})
	require.NoError(t, err)

	graded, err := svc.Grade(ctx, first.ID, "teacher-1", GradeRequest{Grade: "b", Feedback: "almost there"})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, "B", *graded.Grade)
	assert.Equal(t, models.SubmissionStatusGraded, graded.Status)

	second, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "second try",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, second.Status)
	assert.Nil(t, second.Grade)
	assert.Equal(t, 2, repo.upsertCalls)
}

func TestResubmitAuditReferencesStoredRow(t *testing.T) {
	svc, _, audits := newSubmissionFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "first try",
	})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "second try",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// Both audit entries must reference the persisted row, not the fresh id
	// the upsert assigned to its input struct.
	require.Len(t, audits.entries, 2)
	for _, entry := range audits.entries {
		require.NotNil(t, entry.ResourceID)
		assert.Equal(t, second.ID, *entry.ResourceID)
		_, err := svc.GetByID(ctx, *entry.ResourceID)
		assert.NoError(t, err)
	}
}

func TestRegradeOverwritesPriorGrade(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "counting to ten",
	})
	require.NoError(t, err)

	graded, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "B", Feedback: "Good job"})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, "B", *graded.Grade)

	regraded, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "A", Feedback: "Excellent"})
	require.NoError(t, err)
	require.NotNil(t, regraded.Grade)
	assert.Equal(t, "A", *regraded.Grade)
	require.NotNil(t, regraded.Feedback)
	assert.Equal(t, "Excellent", *regraded.Feedback)
	assert.Equal(t, models.SubmissionStatusGraded, regraded.Status)

	// Same payload again lands in the same state.
	again, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "A", Feedback: "Excellent"})
	require.NoError(t, err)
	assert.Equal(t, *regraded.Grade, *again.Grade)
	assert.Equal(t, *regraded.Feedback, *again.Feedback)
	assert.Equal(t, regraded.Status, again.Status)
	assert.Equal(t, 3, repo.gradeCalls)

	stored, err := svc.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", *stored.Grade)
}

type mockDashboardInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (m *mockDashboardInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	return nil
}

func TestSubmissionMutationsInvalidateDashboards(t *testing.T) {
	submissions := &mockSubmissionRepo{}
	assignments := &mockAssignmentReader{assignments: map[string]models.Assignment{
		"asg-1": {ID: "asg-1", SkillID: "skill-1"},
	}}
	children := &mockChildReader{children: map[string]models.Child{
		"child-1": {ID: "child-1", ParentID: "parent-1", Active: true},
	}}
	invalidator := &mockDashboardInvalidator{}
	svc := NewSubmissionService(submissions, assignments, children, nil, invalidator, nil, nil)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard:*"}, invalidator.patterns)

	_, err = svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard:*", "dashboard:*"}, invalidator.patterns)

	// A rejected grade does not touch the cache.
	_, err = svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "A+"})
	require.Error(t, err)
	assert.Len(t, invalidator.patterns, 2)
}

func TestGradeNormalizesLetter(t *testing.T) {
	svc, _, audits := newSubmissionFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)

	resp, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: " a ", Feedback: "wonderful"})
	require.NoError(t, err)
	require.NotNil(t, resp.Grade)
	assert.Equal(t, "A", *resp.Grade)
	assert.Equal(t, "A", resp.GradeLetter)
	assert.Equal(t, "A - Outstanding", resp.GradeDisplay)
	assert.Equal(t, models.SubmissionStatusGraded, resp.Status)
	assert.Len(t, audits.entries, 2)
}

func TestGradeRejectsInvalidLetterBeforePersisting(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)

	for _, invalid := range []string{"", "F", "A+", "excellent"} {
		_, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: invalid})
		require.Error(t, err, "grade %q", invalid)
		assert.Equal(t, appErrors.ErrInvalidGrade.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, 0, repo.gradeCalls)

	stored, err := svc.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	assert.Nil(t, stored.Grade)
}

func TestGradeNeedsRevisionRejectsGradeValue(t *testing.T) {
	svc, _, _ := newSubmissionFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)

	_, err = svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "A", Status: "needs_revision"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	resp, err := svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Status: "needs_revision", Feedback: "try the circles again"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusNeedsRevision, resp.Status)
	assert.Nil(t, resp.Grade)
}

func TestGradeConcurrentRequestsOnlyOneWins(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)
	repo.gradeDelay = 50 * time.Millisecond

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Grade(ctx, sub.ID, "teacher-1", GradeRequest{Grade: "C"})
		}(i)
	}
	wg.Wait()

	var busy, ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if appErrors.FromError(err).Code == appErrors.ErrGradingInProgress.Code {
			busy++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, busy)
	assert.Equal(t, 1, repo.gradeCalls)
}

func TestGradeMissingSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Grade(context.Background(), "missing", "teacher-1", GradeRequest{Grade: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListByStudentParentScoped(t *testing.T) {
	svc, _, _ := newSubmissionFixture()
	ctx := context.Background()

	_, err := svc.Submit(ctx, "parent-1", models.RoleParent, SubmitRequest{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "work",
	})
	require.NoError(t, err)

	submissions, err := svc.ListByStudent(ctx, "parent-1", models.RoleParent, "child-1")
	require.NoError(t, err)
	assert.Len(t, submissions, 1)

	_, err = svc.ListByStudent(ctx, "parent-2", models.RoleParent, "child-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
