package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
)

type mockAssignmentRepo struct {
	stored  map[string]models.Assignment
	deleted []string
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.stored[id]; ok {
		copy := a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListBySkill(ctx context.Context, skillID string) ([]models.Assignment, error) {
	var result []models.Assignment
	for _, a := range m.stored {
		if a.SkillID == skillID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.stored == nil {
		m.stored = make(map[string]models.Assignment)
	}
	if assignment.ID == "" {
		assignment.ID = "asg-new"
	}
	m.stored[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := m.stored[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	m.stored[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.stored[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.stored, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSkillReader struct {
	skills map[string]models.Skill
}

func (m *mockSkillReader) FindByID(ctx context.Context, id string) (*models.Skill, error) {
	if s, ok := m.skills[id]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func newAssignmentFixture() (*AssignmentService, *mockAssignmentRepo, *mockAuditWriter) {
	repo := &mockAssignmentRepo{stored: map[string]models.Assignment{
		"asg-1": {ID: "asg-1", SkillID: "skill-1", Title: "Shape sorting", DueDate: time.Now().Add(24 * time.Hour)},
	}}
	skills := &mockSkillReader{skills: map[string]models.Skill{
		"skill-1": {ID: "skill-1", Name: "Fine motor"},
	}}
	audits := &mockAuditWriter{}
	return NewAssignmentService(repo, skills, audits, nil, nil), repo, audits
}

func TestAssignmentCreate(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()

	assignment, err := svc.Create(context.Background(), "teacher-1", CreateAssignmentRequest{
		SkillID: "skill-1",
		Title:   "Color matching",
		DueDate: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, "teacher-1", assignment.CreatedBy)
	assert.Len(t, repo.stored, 2)
}

func TestAssignmentCreateUnknownSkill(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	_, err := svc.Create(context.Background(), "teacher-1", CreateAssignmentRequest{
		SkillID: "missing",
		Title:   "Color matching",
		DueDate: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentUpdatePartial(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()

	updated, err := svc.Update(context.Background(), "asg-1", UpdateAssignmentRequest{Title: "Shape sorting II"})
	require.NoError(t, err)
	assert.Equal(t, "Shape sorting II", updated.Title)
	assert.Equal(t, "skill-1", repo.stored["asg-1"].SkillID)
}

func TestAssignmentDeleteWritesAudit(t *testing.T) {
	svc, repo, audits := newAssignmentFixture()

	err := svc.Delete(context.Background(), "admin-1", "asg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"asg-1"}, repo.deleted)
	require.Len(t, audits.entries, 1)
	assert.Equal(t, models.AuditActionAssignmentDelete, audits.entries[0].Action)
}

func TestAssignmentDeleteMissing(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	err := svc.Delete(context.Background(), "admin-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentListBySkill(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	assignments, err := svc.ListBySkill(context.Background(), "skill-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)

	_, err = svc.ListBySkill(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
