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

const skillColumns = `id, name, description, age_band, created_by, created_at, updated_at`

const lessonColumns = `id, skill_id, title, content, position, created_by, created_at, updated_at`

// SkillRepository handles skill and lesson persistence.
type SkillRepository struct {
	db *sqlx.DB
}

// NewSkillRepository creates a new skill repository.
func NewSkillRepository(db *sqlx.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

// FindByID returns a skill by identifier.
func (r *SkillRepository) FindByID(ctx context.Context, id string) (*models.Skill, error) {
	query := fmt.Sprintf(`SELECT %s FROM skills WHERE id = $1 LIMIT 1`, skillColumns)
	var skill models.Skill
	if err := r.db.GetContext(ctx, &skill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find skill by id: %w", err)
	}
	return &skill, nil
}

// List returns skills matching the filter with a total count.
func (r *SkillRepository) List(ctx context.Context, filter models.SkillFilter) ([]models.Skill, int, error) {
	baseQuery := `FROM skills WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.AgeBand != "" {
		conditions = append(conditions, fmt.Sprintf("age_band = $%d", len(args)+1))
		args = append(args, filter.AgeBand)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", skillColumns, baseQuery, pageSize, offset)

	var skills []models.Skill
	if err := r.db.SelectContext(ctx, &skills, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list skills: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count skills: %w", err)
	}
	return skills, total, nil
}

// Create inserts a new skill.
func (r *SkillRepository) Create(ctx context.Context, skill *models.Skill) error {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	skill.CreatedAt = now
	skill.UpdatedAt = now
	const query = `INSERT INTO skills (id, name, description, age_band, created_by, created_at, updated_at)
        VALUES (:id, :name, :description, :age_band, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, skill); err != nil {
		return fmt.Errorf("create skill: %w", err)
	}
	return nil
}

// Update rewrites skill metadata.
func (r *SkillRepository) Update(ctx context.Context, skill *models.Skill) error {
	skill.UpdatedAt = time.Now().UTC()
	const query = `UPDATE skills SET name = :name, description = :description, age_band = :age_band, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, skill)
	if err != nil {
		return fmt.Errorf("update skill: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a skill. Lessons and assignments cascade at the schema level.
func (r *SkillRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM skills WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindLessonByID returns a lesson by identifier.
func (r *SkillRepository) FindLessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1 LIMIT 1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// ListLessons returns lessons under a skill ordered by position.
func (r *SkillRepository) ListLessons(ctx context.Context, skillID string) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE skill_id = $1 ORDER BY position ASC`, lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, skillID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// CreateLesson inserts a new lesson. When position is zero it is appended
// after the current maximum for the skill.
func (r *SkillRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	if lesson.Position <= 0 {
		const maxQuery = `SELECT COALESCE(MAX(position), 0) FROM lessons WHERE skill_id = $1`
		var maxPos int
		if err := r.db.GetContext(ctx, &maxPos, maxQuery, lesson.SkillID); err != nil {
			return fmt.Errorf("next lesson position: %w", err)
		}
		lesson.Position = maxPos + 1
	}
	const query = `INSERT INTO lessons (id, skill_id, title, content, position, created_by, created_at, updated_at)
        VALUES (:id, :skill_id, :title, :content, :position, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// UpdateLesson rewrites lesson content and ordering.
func (r *SkillRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, content = :content, position = :position, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteLesson removes a lesson.
func (r *SkillRepository) DeleteLesson(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
