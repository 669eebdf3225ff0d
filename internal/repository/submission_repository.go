package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seedlinghq/seedling-api/internal/models"
)

const submissionColumns = `id, assignment_id, student_id, submission_text, attachments, submitted_at, status, grade, feedback, graded_by, graded_at, created_at, updated_at`

// SubmissionRepository handles submission persistence.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1 LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &submission, nil
}

// FindByAssignmentAndStudent returns the single submission for the pair.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE assignment_id = $1 AND student_id = $2 LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by assignment and student: %w", err)
	}
	return &submission, nil
}

// List returns submissions matching the filter, newest first.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE 1=1`, submissionColumns)
	var args []interface{}
	if filter.AssignmentID != "" {
		query += fmt.Sprintf(" AND assignment_id = $%d", len(args)+1)
		args = append(args, filter.AssignmentID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY submitted_at DESC"
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Upsert writes the submit payload for (assignment, student). A resubmission
// overwrites the row: text, attachments and submitted_at are replaced, status
// returns to submitted and any previous grade and feedback are cleared so the
// status/grade invariant holds.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = now
	const query = `INSERT INTO submissions (id, assignment_id, student_id, submission_text, attachments, submitted_at, status, grade, feedback, graded_by, graded_at, created_at, updated_at)
        VALUES (:id, :assignment_id, :student_id, :submission_text, :attachments, :submitted_at, :status, NULL, NULL, NULL, NULL, :created_at, :updated_at)
        ON CONFLICT (assignment_id, student_id)
        DO UPDATE SET submission_text = EXCLUDED.submission_text,
            attachments = EXCLUDED.attachments,
            submitted_at = EXCLUDED.submitted_at,
            status = EXCLUDED.status,
            grade = NULL,
            feedback = NULL,
            graded_by = NULL,
            graded_at = NULL,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// UpdateGrade overwrites grade, feedback and status for a submission.
// submitted_at is deliberately untouched.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id string, grade, feedback *string, status models.SubmissionStatus, gradedBy string, gradedAt time.Time) error {
	const query = `UPDATE submissions
        SET grade = $2, feedback = $3, status = $4, graded_by = $5, graded_at = $6, updated_at = $7
        WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, grade, feedback, status, gradedBy, gradedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission grade: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUngraded returns submitted-but-ungraded rows for the given assignments.
func (r *SubmissionRepository) ListUngraded(ctx context.Context, assignmentIDs []string, limit int) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return []models.Submission{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	placeholders := make([]string, len(assignmentIDs))
	args := make([]interface{}, len(assignmentIDs))
	for i, id := range assignmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM submissions
        WHERE assignment_id IN (%s) AND status = '%s'
        ORDER BY submitted_at ASC LIMIT %d`, submissionColumns, strings.Join(placeholders, ","), models.SubmissionStatusSubmitted, limit)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list ungraded submissions: %w", err)
	}
	return submissions, nil
}

// CountByStatus returns submission counts keyed by status.
func (r *SubmissionRepository) CountByStatus(ctx context.Context) (map[models.SubmissionStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM submissions GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count submissions by status: %w", err)
	}
	defer rows.Close()
	result := make(map[models.SubmissionStatus]int)
	for rows.Next() {
		var status models.SubmissionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan submission count: %w", err)
		}
		result[status] = count
	}
	return result, nil
}

// Delete removes a submission row.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM submissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
