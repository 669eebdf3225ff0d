package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlinghq/seedling-api/internal/models"
)

func newSubmissionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "submission_text", "attachments", "submitted_at", "status", "grade", "feedback", "graded_by", "graded_at", "created_at", "updated_at"}).
		AddRow("sub-1", "asg-1", "child-1", "my work", []byte(`[]`), now, "submitted", nil, nil, nil, nil, now, now)
}

func TestSubmissionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = \\$1").
		WithArgs("sub-1").
		WillReturnRows(submissionRows())

	submission, err := repo.FindByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "asg-1", submission.AssignmentID)
	assert.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
	assert.Nil(t, submission.Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListFiltersByAssignmentAndStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE 1=1 AND assignment_id = \\$1 AND status = \\$2 ORDER BY submitted_at DESC").
		WithArgs("asg-1", models.SubmissionStatusSubmitted).
		WillReturnRows(submissionRows())

	submissions, err := repo.List(context.Background(), models.SubmissionFilter{
		AssignmentID: "asg-1",
		Status:       models.SubmissionStatusSubmitted,
	})
	require.NoError(t, err)
	assert.Len(t, submissions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpsertClearsGrade(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs(sqlmock.AnyArg(), "asg-1", "child-1", "updated work", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	submission := &models.Submission{
		AssignmentID:   "asg-1",
		StudentID:      "child-1",
		SubmissionText: "updated work",
		SubmittedAt:    time.Now().UTC(),
		Status:         models.SubmissionStatusSubmitted,
	}
	err := repo.Upsert(context.Background(), submission)
	require.NoError(t, err)
	assert.NotEmpty(t, submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateGrade(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	grade := "A"
	feedback := "great effort"
	gradedAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WithArgs("sub-1", &grade, &feedback, models.SubmissionStatusGraded, "teacher-1", gradedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateGrade(context.Background(), "sub-1", &grade, &feedback, models.SubmissionStatusGraded, "teacher-1", gradedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateGradeMissingRow(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	grade := "B"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions")).
		WithArgs("missing", &grade, nil, models.SubmissionStatusGraded, "teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrade(context.Background(), "missing", &grade, nil, models.SubmissionStatusGraded, "teacher-1", time.Now().UTC())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListUngradedEmptyInput(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	submissions, err := repo.ListUngraded(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, submissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("submitted", 3).
		AddRow("graded", 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM submissions GROUP BY status")).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.SubmissionStatusSubmitted])
	assert.Equal(t, 5, counts[models.SubmissionStatusGraded])
	assert.NoError(t, mock.ExpectationsWereMet())
}
