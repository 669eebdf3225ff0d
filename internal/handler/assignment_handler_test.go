package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlinghq/seedling-api/internal/middleware"
	"github.com/seedlinghq/seedling-api/internal/models"
	"github.com/seedlinghq/seedling-api/internal/service"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeSubmissionStore struct {
	rows map[string]models.Submission
	seq  int
}

func (f *fakeSubmissionStore) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if row, ok := f.rows[id]; ok {
		copy := row
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubmissionStore) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	for _, row := range f.rows {
		if row.AssignmentID == assignmentID && row.StudentID == studentID {
			copy := row
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubmissionStore) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	var result []models.Submission
	for _, row := range f.rows {
		if filter.AssignmentID != "" && row.AssignmentID != filter.AssignmentID {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

// Upsert matches the SQL repository: the input struct always receives a
// fresh id, while a conflicting row keeps the id it was created with.
func (f *fakeSubmissionStore) Upsert(ctx context.Context, submission *models.Submission) error {
	f.seq++
	submission.ID = fmt.Sprintf("fresh-%d", f.seq)
	row := *submission
	for id, existing := range f.rows {
		if existing.AssignmentID == submission.AssignmentID && existing.StudentID == submission.StudentID {
			row.ID = id
			break
		}
	}
	row.Grade = nil
	row.Feedback = nil
	row.GradedBy = nil
	row.GradedAt = nil
	f.rows[row.ID] = row
	return nil
}

func (f *fakeSubmissionStore) UpdateGrade(ctx context.Context, id string, grade, feedback *string, status models.SubmissionStatus, gradedBy string, gradedAt time.Time) error {
	row, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	row.Grade = grade
	row.Feedback = feedback
	row.Status = status
	row.GradedBy = &gradedBy
	row.GradedAt = &gradedAt
	f.rows[id] = row
	return nil
}

type fakeAssignmentStore struct{}

func (fakeAssignmentStore) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if id == "asg-1" {
		return &models.Assignment{ID: "asg-1", SkillID: "skill-1"}, nil
	}
	return nil, sql.ErrNoRows
}

type fakeChildStore struct{}

func (fakeChildStore) FindByID(ctx context.Context, id string) (*models.Child, error) {
	if id == "child-1" {
		return &models.Child{ID: "child-1", ParentID: "parent-1", Active: true}, nil
	}
	return nil, sql.ErrNoRows
}

func newGradingFixture() (*AssignmentHandler, *fakeSubmissionStore) {
	store := &fakeSubmissionStore{rows: map[string]models.Submission{
		"sub-1": {
			ID:           "sub-1",
			AssignmentID: "asg-1",
			StudentID:    "child-1",
			Status:       models.SubmissionStatusSubmitted,
			SubmittedAt:  time.Now().UTC(),
		},
	}}
	submissions := service.NewSubmissionService(store, fakeAssignmentStore{}, fakeChildStore{}, nil, nil, nil, nil)
	return NewAssignmentHandler(nil, submissions, nil), store
}

func gradeRequest(t *testing.T, handler *AssignmentHandler, submissionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/assignments/submissions/"+submissionID+"/grade", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: submissionID}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Grade(c)
	return rec
}

func TestGradeEndpointNormalizesLetter(t *testing.T) {
	handler, store := newGradingFixture()

	rec := gradeRequest(t, handler, "sub-1", `{"grade":" a ","feedback":"well done","status":"graded"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "A", envelope.Data["grade"])
	assert.Equal(t, "A - Outstanding", envelope.Data["grade_display"])
	require.NotNil(t, store.rows["sub-1"].Grade)
	assert.Equal(t, "A", *store.rows["sub-1"].Grade)
}

func TestGradeEndpointRejectsInvalidLetter(t *testing.T) {
	handler, store := newGradingFixture()

	rec := gradeRequest(t, handler, "sub-1", `{"grade":"excellent","status":"graded"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error["message"], "letter grade")
	assert.Nil(t, store.rows["sub-1"].Grade)
}

func TestGradeEndpointNeedsRevisionWithoutGrade(t *testing.T) {
	handler, store := newGradingFixture()

	rec := gradeRequest(t, handler, "sub-1", `{"feedback":"please redo page two","status":"needs_revision"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SubmissionStatusNeedsRevision, store.rows["sub-1"].Status)
	assert.Nil(t, store.rows["sub-1"].Grade)
}

func TestGradeEndpointUnknownSubmission(t *testing.T) {
	handler, _ := newGradingFixture()

	rec := gradeRequest(t, handler, "missing", `{"grade":"B","status":"graded"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitEndpointRequiresAuth(t *testing.T) {
	handler, _ := newGradingFixture()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/assignments/submit", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitEndpointResubmitClearsGrade(t *testing.T) {
	handler, store := newGradingFixture()

	rec := gradeRequest(t, handler, "sub-1", `{"grade":"b","status":"graded"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	gin.SetMode(gin.TestMode)
	rec = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"assignment_id":"asg-1","student_id":"child-1","submission_text":"second try"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/assignments/submit", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})

	handler.Submit(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	row := store.rows["sub-1"]
	assert.Equal(t, models.SubmissionStatusSubmitted, row.Status)
	assert.Equal(t, "second try", row.SubmissionText)
}
