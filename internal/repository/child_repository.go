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

const childColumns = `id, full_name, birth_date, parent_id, group_id, active, created_at, updated_at`

// ChildRepository handles child and group persistence.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository creates a new child repository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// FindByID returns a child by identifier.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE id = $1 LIMIT 1`, childColumns)
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find child by id: %w", err)
	}
	return &child, nil
}

// List returns children matching the filter with a total count.
func (r *ChildRepository) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error) {
	baseQuery := `FROM children WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ParentID != "" {
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)+1))
		args = append(args, filter.ParentID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(full_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY full_name ASC LIMIT %d OFFSET %d", childColumns, baseQuery, pageSize, offset)

	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list children: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count children: %w", err)
	}
	return children, total, nil
}

// ListByParent returns all active children registered under a parent.
func (r *ChildRepository) ListByParent(ctx context.Context, parentID string) ([]models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE parent_id = $1 AND active = TRUE ORDER BY full_name ASC`, childColumns)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, parentID); err != nil {
		return nil, fmt.Errorf("list children by parent: %w", err)
	}
	return children, nil
}

// ListIDsByGroup returns child IDs in a group.
func (r *ChildRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT id FROM children WHERE group_id = $1 AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, groupID); err != nil {
		return nil, fmt.Errorf("list child ids by group: %w", err)
	}
	return ids, nil
}

// Create inserts a new child.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	child.CreatedAt = now
	child.UpdatedAt = now
	const query = `INSERT INTO children (id, full_name, birth_date, parent_id, group_id, active, created_at, updated_at)
        VALUES (:id, :full_name, :birth_date, :parent_id, :group_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

// Update rewrites mutable child fields.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = time.Now().UTC()
	const query = `UPDATE children
        SET full_name = :full_name, birth_date = :birth_date, parent_id = :parent_id, group_id = :group_id, active = :active, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, child)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByActive returns total and active enrollment counts.
func (r *ChildRepository) CountByActive(ctx context.Context) (total, active int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE active) AS active FROM children`
	row := r.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count children: %w", err)
	}
	return total, active, nil
}

// CountByGroup returns per-group enrolled children counts.
func (r *ChildRepository) CountByGroup(ctx context.Context, groupIDs []string) (map[string]int, error) {
	if len(groupIDs) == 0 {
		return map[string]int{}, nil
	}
	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT group_id, COUNT(*) FROM children
        WHERE active = TRUE AND group_id IN (%s) GROUP BY group_id`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count children by group: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int, len(groupIDs))
	for rows.Next() {
		var groupID string
		var count int
		if err := rows.Scan(&groupID, &count); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		result[groupID] = count
	}
	return result, nil
}

// FindGroupByID returns a group by identifier.
func (r *ChildRepository) FindGroupByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, teacher_id, created_at, updated_at FROM groups WHERE id = $1 LIMIT 1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}

// ListGroups returns all groups ordered by name.
func (r *ChildRepository) ListGroups(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, teacher_id, created_at, updated_at FROM groups ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// ListGroupsByTeacher returns groups assigned to a teacher.
func (r *ChildRepository) ListGroupsByTeacher(ctx context.Context, teacherID string) ([]models.Group, error) {
	const query = `SELECT id, name, teacher_id, created_at, updated_at FROM groups WHERE teacher_id = $1 ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, teacherID); err != nil {
		return nil, fmt.Errorf("list groups by teacher: %w", err)
	}
	return groups, nil
}

// CreateGroup inserts a new group.
func (r *ChildRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, name, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}
