package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seedlinghq/seedling-api/internal/models"
)

const assignmentColumns = `id, skill_id, title, description, instructions, due_date, attachments, created_by, created_at, updated_at`

// AssignmentRepository handles assignment persistence.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 LIMIT 1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// ListBySkill returns assignments under a skill ordered by due date.
func (r *AssignmentRepository) ListBySkill(ctx context.Context, skillID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE skill_id = $1 ORDER BY due_date ASC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, skillID); err != nil {
		return nil, fmt.Errorf("list assignments by skill: %w", err)
	}
	return assignments, nil
}

// ListDueBetween returns assignments due within the window, soonest first.
func (r *AssignmentRepository) ListDueBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Assignment, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE due_date >= $1 AND due_date < $2 ORDER BY due_date ASC LIMIT %d`, assignmentColumns, limit)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, from, to); err != nil {
		return nil, fmt.Errorf("list assignments due: %w", err)
	}
	return assignments, nil
}

// ListIDsByCreator returns assignment IDs created by the given user.
func (r *AssignmentRepository) ListIDsByCreator(ctx context.Context, createdBy string) ([]string, error) {
	const query = `SELECT id FROM assignments WHERE created_by = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, createdBy); err != nil {
		return nil, fmt.Errorf("list assignment ids by creator: %w", err)
	}
	return ids, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, skill_id, title, description, instructions, due_date, attachments, created_by, created_at, updated_at)
        VALUES (:id, :skill_id, :title, :description, :instructions, :due_date, :attachments, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites assignment metadata.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments
        SET title = :title, description = :description, instructions = :instructions, due_date = :due_date, attachments = :attachments, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment. Submission cleanup is left to the database
// schema (ON DELETE CASCADE).
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOpen returns the number of assignments with a due date in the future.
func (r *AssignmentRepository) CountOpen(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE due_date >= $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, now); err != nil {
		return 0, fmt.Errorf("count open assignments: %w", err)
	}
	return total, nil
}
